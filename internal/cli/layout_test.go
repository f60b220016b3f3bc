package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/battleship-go/internal/model"
	"github.com/mcoot/battleship-go/internal/services/board"
	"github.com/mcoot/battleship-go/internal/testutil"
)

func TestParseShipArgHorizontal(t *testing.T) {
	ship, err := parseShipArg("cruiser=B3:h")
	require.NoError(t, err)

	assert.Equal(t, model.ShipCruiser, ship.ID)
	assert.Equal(t, []model.Coordinate{{Row: 1, Col: 2}, {Row: 1, Col: 3}, {Row: 1, Col: 4}}, ship.Cells)
}

func TestParseShipArgVertical(t *testing.T) {
	ship, err := parseShipArg("Destroyer=j9:V")
	require.NoError(t, err)

	assert.Equal(t, model.ShipDestroyer, ship.ID)
	assert.Equal(t, []model.Coordinate{{Row: 9, Col: 8}, {Row: 10, Col: 8}}, ship.Cells)
}

func TestParseShipArgDefaultsToHorizontal(t *testing.T) {
	ship, err := parseShipArg("destroyer=A1")
	require.NoError(t, err)
	assert.Equal(t, []model.Coordinate{{Row: 0, Col: 0}, {Row: 0, Col: 1}}, ship.Cells)
}

func TestParseShipArgErrors(t *testing.T) {
	for _, arg := range []string{"carrier", "rowboat=A1:h", "carrier=Z1:h", "carrier=A1:d"} {
		_, err := parseShipArg(arg)
		assert.Error(t, err, arg)
	}
}

func TestLoadLayoutFromSpecsIsValidFleet(t *testing.T) {
	ships, err := loadLayout("", []string{
		"carrier=A1:h", "battleship=C1:h", "cruiser=E1:h", "submarine=G1:h", "destroyer=I1:h",
	})
	require.NoError(t, err)

	assert.Equal(t, testutil.StandardFleet(), ships)
	assert.NoError(t, board.ValidateFleet(ships))
}

func TestLoadLayoutFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"destroyer","cells":[{"row":0,"col":0},{"row":1,"col":0}]}]`), 0o600))

	ships, err := loadLayout(path, nil)
	require.NoError(t, err)
	require.Len(t, ships, 1)
	assert.Equal(t, model.Coordinate{Row: 1, Col: 0}, ships[0].Cells[1])
}

func TestDescribeEvent(t *testing.T) {
	shot := frame{Event: model.EventResponse, Data: []byte(`{"result":"hit","shipId":"destroyer","playerString":"player1","target":{"row":3,"col":4}}`)}
	assert.Equal(t, "player1 fired at D5: hit destroyer", describeEvent(shot))

	miss := frame{Event: model.EventResponse, Data: []byte(`{"result":"miss","playerString":"player2","target":{"row":0,"col":9}}`)}
	assert.Equal(t, "player2 fired at A10: miss", describeEvent(miss))

	unknown := frame{Event: "something", Data: []byte(`{"x":1}`)}
	assert.Equal(t, `something: {"x":1}`, describeEvent(unknown))
}

func TestPlaySessionTracksOwnShots(t *testing.T) {
	s := &playSession{}
	s.track(frame{Event: model.EventJoined, Data: []byte(`{"room":"ROOM01","player":"player2","gameId":"g1"}`)})
	s.track(frame{Event: model.EventResponse, Data: []byte(`{"result":"hit","shipId":"cruiser","playerString":"player2","target":{"row":1,"col":1}}`)})
	s.track(frame{Event: model.EventResponse, Data: []byte(`{"result":"miss","playerString":"player1","target":{"row":2,"col":2}}`)})
	s.track(frame{Event: model.EventResponse, Data: []byte(`{"result":"miss","playerString":"player2","target":{"row":5,"col":5}}`)})

	room, gameID := s.current()
	assert.Equal(t, model.RoomID("ROOM01"), room)
	assert.Equal(t, model.GameID("g1"), gameID)
	assert.Equal(t, []model.Coordinate{{Row: 1, Col: 1}}, s.shots.Hits)
	assert.Equal(t, []model.Coordinate{{Row: 5, Col: 5}}, s.shots.Misses)
}
