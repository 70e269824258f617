package entities

import (
	"encoding/json"
	"fmt"
)

// EntryMetadata is the tagged metadata variant attached to a ledger entry.
// Each transaction type carries its own structured payload so downstream
// consumers never parse free-form blobs.
type EntryMetadata interface {
	MetadataKind() string
}

// WagerSettlementMetadata accompanies wager_payout, wager_void_refund and
// wager_stake entries
type WagerSettlementMetadata struct {
	WagerID         int64   `json:"wager_id"`
	Result          string  `json:"result"`
	Stake           int64   `json:"stake"`
	CombinedOdds    float64 `json:"combined_odds"`
	DeadHeatApplied bool    `json:"dead_heat_applied,omitempty"`
	Rule4Applied    bool    `json:"rule4_applied,omitempty"`
}

func (WagerSettlementMetadata) MetadataKind() string { return "wager_settlement" }

// CashoutMetadata accompanies cashout_credit entries
type CashoutMetadata struct {
	WagerID         int64 `json:"wager_id"`
	OfferAmount     int64 `json:"offer_amount"`
	PotentialPayout int64 `json:"potential_payout"`
}

func (CashoutMetadata) MetadataKind() string { return "cashout" }

// ChargebackMetadata accompanies chargeback_refund entries
type ChargebackMetadata struct {
	WagerID   int64  `json:"wager_id"`
	DisputeID string `json:"dispute_id"`
	Reason    string `json:"reason"`
}

func (ChargebackMetadata) MetadataKind() string { return "chargeback" }

// BankTransferMetadata accompanies deposit and withdrawal entries
type BankTransferMetadata struct {
	BankReference string `json:"bank_reference"`
	Channel       string `json:"channel,omitempty"`
}

func (BankTransferMetadata) MetadataKind() string { return "bank_transfer" }

// ManualAdjustmentMetadata accompanies operator-initiated corrections
type ManualAdjustmentMetadata struct {
	OperatorID int64  `json:"operator_id"`
	Reason     string `json:"reason"`
	TicketRef  string `json:"ticket_ref,omitempty"`
}

func (ManualAdjustmentMetadata) MetadataKind() string { return "manual_adjustment" }

// metadataEnvelope is the persisted JSON shape: {"kind": ..., "data": {...}}
type metadataEnvelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// MarshalEntryMetadata serializes metadata into its tagged envelope
func MarshalEntryMetadata(m EntryMetadata) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata payload: %w", err)
	}
	return json.Marshal(metadataEnvelope{Kind: m.MetadataKind(), Data: data})
}

// UnmarshalEntryMetadata deserializes a tagged envelope back into its variant
func UnmarshalEntryMetadata(raw []byte) (EntryMetadata, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var env metadataEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata envelope: %w", err)
	}

	var target EntryMetadata
	switch env.Kind {
	case "wager_settlement":
		target = &WagerSettlementMetadata{}
	case "cashout":
		target = &CashoutMetadata{}
	case "chargeback":
		target = &ChargebackMetadata{}
	case "bank_transfer":
		target = &BankTransferMetadata{}
	case "manual_adjustment":
		target = &ManualAdjustmentMetadata{}
	default:
		return nil, fmt.Errorf("unknown metadata kind %q", env.Kind)
	}

	if err := json.Unmarshal(env.Data, target); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s metadata: %w", env.Kind, err)
	}

	switch v := target.(type) {
	case *WagerSettlementMetadata:
		return *v, nil
	case *CashoutMetadata:
		return *v, nil
	case *ChargebackMetadata:
		return *v, nil
	case *BankTransferMetadata:
		return *v, nil
	case *ManualAdjustmentMetadata:
		return *v, nil
	}
	return nil, fmt.Errorf("unhandled metadata kind %q", env.Kind)
}
