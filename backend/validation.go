// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ttbt-io/scorebook/backend/ledger"
)

// Command types accepted by POST /api/command.
const (
	CmdAddPlayer           = "ADD_PLAYER"
	CmdAddPlayerFromMemory = "ADD_PLAYER_FROM_MEMORY"
	CmdEditPlayer          = "EDIT_PLAYER"
	CmdDeletePlayer        = "DELETE_PLAYER"
	CmdSubstitute          = "SUBSTITUTE"
	CmdRecordAtBat         = "RECORD_AT_BAT"
	CmdEditAtBat           = "EDIT_AT_BAT"
	CmdDeleteAtBat         = "DELETE_AT_BAT"
	CmdClearHistory        = "CLEAR_HISTORY"
	CmdAddOut              = "ADD_OUT"
	CmdResetOuts           = "RESET_OUTS"
	CmdChangeInning        = "CHANGE_INNING"
	CmdToggleBase          = "TOGGLE_BASE"
	CmdSetInning           = "SET_INNING"
	CmdSetInningScore      = "SET_INNING_SCORE"
	CmdSetTeamNames        = "SET_TEAM_NAMES"
	CmdUpdateMetadata      = "UPDATE_METADATA"
	CmdResetGame           = "RESET_GAME"
)

const (
	maxNameLen     = 50
	maxTeamNameLen = 50
	maxLocationLen = 100
	maxIDLen       = 64
)

// Command is one mutation request from the scorekeeper page.
type Command struct {
	ID      string          `json:"id,omitempty"` // echoed back in the reply
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type playerPayload struct {
	Team     ledger.Team     `json:"team"`
	PlayerID string          `json:"playerId,omitempty"`
	Name     string          `json:"name"`
	Number   int             `json:"number"`
	Position ledger.Position `json:"position"`
}

type substitutePayload struct {
	Team        ledger.Team     `json:"team"`
	OutPlayerID string          `json:"outPlayerId"`
	Name        string          `json:"name"`
	Number      int             `json:"number"`
	Position    ledger.Position `json:"position"`
}

type atBatPayload struct {
	Team     ledger.Team   `json:"team,omitempty"`
	PlayerID string        `json:"playerId,omitempty"`
	AtBatID  string        `json:"atBatId,omitempty"`
	Result   ledger.Result `json:"result"`
	Runs     int           `json:"runs"`
}

type baseTogglePayload struct {
	Base int `json:"base"`
}

type inningPayload struct {
	Inning int  `json:"inning"`
	IsTop  bool `json:"isTop"`
}

type inningScorePayload struct {
	Team   ledger.Team `json:"team"`
	Inning int         `json:"inning"`
	Runs   int         `json:"runs"`
}

type teamNamesPayload struct {
	Home string `json:"home"`
	Away string `json:"away"`
}

// ParseCommand decodes and validates a command. The engine repeats the
// semantic checks; this only rejects malformed or oversized input.
func ParseCommand(data []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return cmd, fmt.Errorf("%w: malformed command JSON", ledger.ErrValidation)
	}
	if cmd.Type == "" {
		return cmd, fmt.Errorf("%w: missing command type", ledger.ErrValidation)
	}
	if err := validateStringLen(cmd.ID, maxIDLen, "command id"); err != nil {
		return cmd, err
	}
	if err := validateCommandPayload(cmd.Type, cmd.Payload); err != nil {
		return cmd, err
	}
	return cmd, nil
}

// validateCommandPayload validates the payload based on the command type.
func validateCommandPayload(cmdType string, payload json.RawMessage) error {
	switch cmdType {
	case CmdAddPlayer:
		return validateAddPlayer(payload)
	case CmdAddPlayerFromMemory:
		return validateAddPlayerFromMemory(payload)
	case CmdEditPlayer:
		return validateEditPlayer(payload)
	case CmdDeletePlayer:
		return validateDeletePlayer(payload)
	case CmdSubstitute:
		return validateSubstitute(payload)
	case CmdRecordAtBat:
		return validateRecordAtBat(payload)
	case CmdEditAtBat:
		return validateEditAtBat(payload)
	case CmdDeleteAtBat:
		return validateDeleteAtBat(payload)
	case CmdToggleBase:
		return validateToggleBase(payload)
	case CmdSetInning:
		return validateSetInning(payload)
	case CmdSetInningScore:
		return validateSetInningScore(payload)
	case CmdSetTeamNames:
		return validateSetTeamNames(payload)
	case CmdUpdateMetadata:
		return validateUpdateMetadata(payload)
	case CmdClearHistory, CmdAddOut, CmdResetOuts, CmdChangeInning, CmdResetGame:
		return nil // No payload
	default:
		return fmt.Errorf("%w: unknown command type: %s", ledger.ErrValidation, cmdType)
	}
}

// validateStringLen checks if the string length is within the limit.
func validateStringLen(s string, max int, name string) error {
	if len(s) > max {
		return fmt.Errorf("%w: %s too long (max %d chars)", ledger.ErrValidation, name, max)
	}
	return nil
}

func decodePayload[T any](payload json.RawMessage) (T, error) {
	var p T
	if len(payload) == 0 {
		return p, fmt.Errorf("%w: missing payload", ledger.ErrValidation)
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return p, fmt.Errorf("%w: malformed payload: %v", ledger.ErrValidation, err)
	}
	return p, nil
}

func validateTeam(t ledger.Team) error {
	if !t.Valid() {
		return fmt.Errorf("%w: invalid team %q", ledger.ErrValidation, t)
	}
	return nil
}

func validatePlayerFields(t ledger.Team, name string, pos ledger.Position) error {
	if err := validateTeam(t); err != nil {
		return err
	}
	if err := validateStringLen(name, maxNameLen, "name"); err != nil {
		return err
	}
	if !pos.Valid() {
		return fmt.Errorf("%w: invalid position %q", ledger.ErrValidation, pos)
	}
	return nil
}

func validateID(id, name string) error {
	if id == "" {
		return fmt.Errorf("%w: missing %s", ledger.ErrValidation, name)
	}
	return validateStringLen(id, maxIDLen, name)
}

// --- Specific Payload Validators ---

func validateAddPlayer(payload json.RawMessage) error {
	p, err := decodePayload[playerPayload](payload)
	if err != nil {
		return err
	}
	return validatePlayerFields(p.Team, p.Name, p.Position)
}

func validateAddPlayerFromMemory(payload json.RawMessage) error {
	p, err := decodePayload[playerPayload](payload)
	if err != nil {
		return err
	}
	return validateTeam(p.Team)
}

func validateEditPlayer(payload json.RawMessage) error {
	p, err := decodePayload[playerPayload](payload)
	if err != nil {
		return err
	}
	if err := validateID(p.PlayerID, "playerId"); err != nil {
		return err
	}
	return validatePlayerFields(p.Team, p.Name, p.Position)
}

func validateDeletePlayer(payload json.RawMessage) error {
	p, err := decodePayload[playerPayload](payload)
	if err != nil {
		return err
	}
	if err := validateTeam(p.Team); err != nil {
		return err
	}
	return validateID(p.PlayerID, "playerId")
}

func validateSubstitute(payload json.RawMessage) error {
	p, err := decodePayload[substitutePayload](payload)
	if err != nil {
		return err
	}
	if err := validateID(p.OutPlayerID, "outPlayerId"); err != nil {
		return err
	}
	return validatePlayerFields(p.Team, p.Name, p.Position)
}

func validateOutcome(r ledger.Result, runs int) error {
	if !r.Valid() {
		return fmt.Errorf("%w: unknown result %q", ledger.ErrValidation, r)
	}
	if runs < 0 || runs > 99 {
		return fmt.Errorf("%w: invalid runs %d", ledger.ErrValidation, runs)
	}
	return nil
}

func validateRecordAtBat(payload json.RawMessage) error {
	p, err := decodePayload[atBatPayload](payload)
	if err != nil {
		return err
	}
	if err := validateTeam(p.Team); err != nil {
		return err
	}
	if err := validateID(p.PlayerID, "playerId"); err != nil {
		return err
	}
	return validateOutcome(p.Result, p.Runs)
}

func validateEditAtBat(payload json.RawMessage) error {
	p, err := decodePayload[atBatPayload](payload)
	if err != nil {
		return err
	}
	if err := validateID(p.AtBatID, "atBatId"); err != nil {
		return err
	}
	return validateOutcome(p.Result, p.Runs)
}

func validateDeleteAtBat(payload json.RawMessage) error {
	p, err := decodePayload[atBatPayload](payload)
	if err != nil {
		return err
	}
	return validateID(p.AtBatID, "atBatId")
}

func validateToggleBase(payload json.RawMessage) error {
	p, err := decodePayload[baseTogglePayload](payload)
	if err != nil {
		return err
	}
	if p.Base < 1 || p.Base > 3 {
		return fmt.Errorf("%w: invalid base %d", ledger.ErrValidation, p.Base)
	}
	return nil
}

func validateSetInning(payload json.RawMessage) error {
	p, err := decodePayload[inningPayload](payload)
	if err != nil {
		return err
	}
	if p.Inning < 1 || p.Inning > ledger.Innings {
		return fmt.Errorf("%w: invalid inning %d", ledger.ErrValidation, p.Inning)
	}
	return nil
}

func validateSetInningScore(payload json.RawMessage) error {
	p, err := decodePayload[inningScorePayload](payload)
	if err != nil {
		return err
	}
	if err := validateTeam(p.Team); err != nil {
		return err
	}
	if p.Inning < 1 || p.Inning > ledger.Innings {
		return fmt.Errorf("%w: invalid inning %d", ledger.ErrValidation, p.Inning)
	}
	if p.Runs < 0 || p.Runs > 99 {
		return fmt.Errorf("%w: invalid runs %d", ledger.ErrValidation, p.Runs)
	}
	return nil
}

func validateSetTeamNames(payload json.RawMessage) error {
	p, err := decodePayload[teamNamesPayload](payload)
	if err != nil {
		return err
	}
	if err := validateStringLen(p.Home, maxTeamNameLen, "home team"); err != nil {
		return err
	}
	return validateStringLen(p.Away, maxTeamNameLen, "away team")
}

func validateUpdateMetadata(payload json.RawMessage) error {
	p, err := decodePayload[ledger.Metadata](payload)
	if err != nil {
		return err
	}
	if err := validateStringLen(p.Location, maxLocationLen, "location"); err != nil {
		return err
	}
	if p.Date != "" {
		if _, err := time.Parse(time.DateOnly, p.Date); err != nil {
			return fmt.Errorf("%w: invalid date format: %v", ledger.ErrValidation, err)
		}
	}
	if s := strings.TrimSpace(p.Status); s != "" && s != ledger.StatusOngoing && s != ledger.StatusFinished {
		return fmt.Errorf("%w: invalid status %q", ledger.ErrValidation, p.Status)
	}
	return nil
}
