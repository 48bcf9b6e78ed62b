package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	Weekly  ChallengeKind = "WEEKLY"
	Monthly ChallengeKind = "MONTHLY"
)

const (
	ChallengeAvailable ChallengeStatus = "AVAILABLE"
	ChallengeActive    ChallengeStatus = "ACTIVE"
	ChallengeCompleted ChallengeStatus = "COMPLETED"
)

type (
	ChallengeKind   string
	ChallengeStatus string

	Challenge struct {
		ID          string          `json:"id"`
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Kind        ChallengeKind   `json:"type"`
		RewardXP    int             `json:"rewardXp"`
		Status      ChallengeStatus `json:"status"`
	}

	Achievement struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Unlocked    bool   `json:"unlocked"`
	}
)

func (k *ChallengeKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(Weekly), "SEMANAL":
		*k = Weekly
	case string(Monthly), "MENSAL":
		*k = Monthly
	default:
		return fmt.Errorf("unknown challenge type %q", s)
	}
	return nil
}

func (st *ChallengeStatus) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(ChallengeAvailable), "DISPONIVEL":
		*st = ChallengeAvailable
	case string(ChallengeActive), "ATIVO":
		*st = ChallengeActive
	case string(ChallengeCompleted), "CONCLUIDO":
		*st = ChallengeCompleted
	default:
		return fmt.Errorf("unknown challenge status %q", s)
	}
	return nil
}
