package board

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/battleship-go/internal/model"
	"github.com/mcoot/battleship-go/internal/testutil"
)

type EvaluatorSuite struct {
	suite.Suite
	fleet []model.Ship
}

func TestEvaluatorSuite(t *testing.T) {
	suite.Run(t, new(EvaluatorSuite))
}

func (s *EvaluatorSuite) SetupTest() {
	s.fleet = testutil.StandardFleet()
}

// CheckForHit tests

func (s *EvaluatorSuite) TestCheckForHitReportsHitAndShip() {
	layout := []model.Ship{{ID: model.ShipDestroyer, Cells: []model.Coordinate{{Row: 3, Col: 4}, {Row: 3, Col: 5}}}}

	v := CheckForHit(model.Coordinate{Row: 3, Col: 4}, layout)

	s.Equal(model.ShotHit, v.Result)
	s.Equal(model.ShipDestroyer, v.ShipID)
}

func (s *EvaluatorSuite) TestCheckForHitReportsMiss() {
	v := CheckForHit(model.Coordinate{Row: 1, Col: 1}, s.fleet)

	s.Equal(model.ShotMiss, v.Result)
	s.Empty(v.ShipID)
}

func (s *EvaluatorSuite) TestCheckForHitAgainstEmptyLayoutMisses() {
	v := CheckForHit(model.Coordinate{Row: 0, Col: 0}, nil)
	s.Equal(model.ShotMiss, v.Result)
}

func (s *EvaluatorSuite) TestCheckForHitDoesNotMutateLayout() {
	before := testutil.StandardFleet()
	CheckForHit(model.Coordinate{Row: 0, Col: 0}, s.fleet)
	s.Equal(before, s.fleet)
}

// ValidateTarget tests

func (s *EvaluatorSuite) TestValidateTargetAcceptsFreshCell() {
	board := &model.PlayerBoard{}
	s.NoError(ValidateTarget(model.Coordinate{Row: 9, Col: 9}, board))
}

func (s *EvaluatorSuite) TestValidateTargetRejectsOutOfBounds() {
	board := &model.PlayerBoard{}
	for _, c := range []model.Coordinate{{Row: -1, Col: 0}, {Row: 0, Col: 10}, {Row: 10, Col: 3}} {
		s.ErrorIs(ValidateTarget(c, board), model.ErrInvalidCoordinate, "target %v", c)
	}
}

func (s *EvaluatorSuite) TestValidateTargetRejectsRepeatedHit() {
	board := &model.PlayerBoard{Hits: []model.Coordinate{{Row: 2, Col: 2}}}
	s.ErrorIs(ValidateTarget(model.Coordinate{Row: 2, Col: 2}, board), model.ErrInvalidCoordinate)
}

func (s *EvaluatorSuite) TestValidateTargetRejectsRepeatedMiss() {
	board := &model.PlayerBoard{Misses: []model.Coordinate{{Row: 5, Col: 1}}}
	s.ErrorIs(ValidateTarget(model.Coordinate{Row: 5, Col: 1}, board), model.ErrInvalidCoordinate)
}

// HasWon tests

func (s *EvaluatorSuite) TestHasWonAtSeventeenHits() {
	board := &model.PlayerBoard{Hits: testutil.FleetTargets(s.fleet)}
	s.Require().Len(board.Hits, model.FleetCells)
	s.True(HasWon(board))
}

func (s *EvaluatorSuite) TestHasWonFalseAtSixteenHits() {
	board := &model.PlayerBoard{Hits: testutil.FleetTargets(s.fleet)[:16]}
	s.False(HasWon(board))
}

// ValidateFleet tests

func (s *EvaluatorSuite) TestValidateFleetAcceptsStandardFleet() {
	s.NoError(ValidateFleet(s.fleet))
}

func (s *EvaluatorSuite) TestValidateFleetAcceptsVerticalShips() {
	fleet := s.fleet
	fleet[4] = model.Ship{ID: model.ShipDestroyer, Cells: []model.Coordinate{{Row: 8, Col: 9}, {Row: 9, Col: 9}}}
	s.NoError(ValidateFleet(fleet))
}

func (s *EvaluatorSuite) TestValidateFleetAcceptsUnorderedCells() {
	fleet := s.fleet
	fleet[2].Cells[0], fleet[2].Cells[2] = fleet[2].Cells[2], fleet[2].Cells[0]
	s.NoError(ValidateFleet(fleet))
}

func (s *EvaluatorSuite) TestValidateFleetRejectsMissingShip() {
	s.ErrorIs(ValidateFleet(s.fleet[:4]), model.ErrInvalidFleet)
}

func (s *EvaluatorSuite) TestValidateFleetRejectsDuplicateShip() {
	fleet := s.fleet
	fleet[3] = model.Ship{ID: model.ShipCruiser, Cells: fleet[3].Cells}
	s.ErrorIs(ValidateFleet(fleet), model.ErrInvalidFleet)
}

func (s *EvaluatorSuite) TestValidateFleetRejectsUnknownShip() {
	fleet := s.fleet
	fleet[4].ID = "rowboat"
	s.ErrorIs(ValidateFleet(fleet), model.ErrInvalidFleet)
}

func (s *EvaluatorSuite) TestValidateFleetRejectsWrongLength() {
	fleet := s.fleet
	fleet[0].Cells = fleet[0].Cells[:4]
	s.ErrorIs(ValidateFleet(fleet), model.ErrInvalidFleet)
}

func (s *EvaluatorSuite) TestValidateFleetRejectsOffBoard() {
	fleet := s.fleet
	fleet[4].Cells = []model.Coordinate{{Row: 9, Col: 9}, {Row: 9, Col: 10}}
	s.ErrorIs(ValidateFleet(fleet), model.ErrInvalidFleet)
}

func (s *EvaluatorSuite) TestValidateFleetRejectsDiagonal() {
	fleet := s.fleet
	fleet[4].Cells = []model.Coordinate{{Row: 8, Col: 8}, {Row: 9, Col: 9}}
	s.ErrorIs(ValidateFleet(fleet), model.ErrInvalidFleet)
}

func (s *EvaluatorSuite) TestValidateFleetRejectsGap() {
	fleet := s.fleet
	fleet[2].Cells = []model.Coordinate{{Row: 4, Col: 0}, {Row: 4, Col: 1}, {Row: 4, Col: 3}}
	s.ErrorIs(ValidateFleet(fleet), model.ErrInvalidFleet)
}

func (s *EvaluatorSuite) TestValidateFleetRejectsOverlap() {
	fleet := s.fleet
	fleet[4].Cells = []model.Coordinate{{Row: 0, Col: 4}, {Row: 1, Col: 4}}
	s.ErrorIs(ValidateFleet(fleet), model.ErrInvalidFleet)
}
