package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestSwapEventDataJSONStringFields(t *testing.T) {
	payload := SwapEventData{
		Pool:      "0x1111111111111111111111111111111111111111",
		Recipient: "0x2222222222222222222222222222222222222222",
		AmountIn:  "12345678901234567890123456789",
		AmountOut: "42",
		Fee:       "12345678901234567",
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, key := range []string{"amount_in", "amount_out", "fee"} {
		if _, ok := decoded[key].(string); !ok {
			t.Fatalf("%s should be string", key)
		}
	}
}

func TestLiquidityEventName(t *testing.T) {
	if (LiquidityEvent{}).EventName() != EventAddLiquidity {
		t.Fatalf("deposit should be AddLiquidity")
	}
	if (LiquidityEvent{Removed: true}).EventName() != EventRemoveLiquidity {
		t.Fatalf("withdrawal should be RemoveLiquidity")
	}
}

func TestJournalPositionCarriedThrough(t *testing.T) {
	record := LogRecord{
		ChainID:     1337,
		BlockNumber: 7,
		TxHash:      "0xabc",
		LogIndex:    2,
		Depth:       3,
		Address:     "0x1111111111111111111111111111111111111111",
		Topics:      []string{"0xfeed"},
		Data:        "0x",
		Timestamp:   1700000000,
	}

	event := NewTypedEvent(record, EventSwap, SwapEventData{})
	if event.BlockNumber != 7 || event.LogIndex != 2 || event.Depth != 3 || event.Timestamp != 1700000000 {
		t.Fatalf("position not copied: %+v", event)
	}
	if event.Raw == nil || event.Raw.Topic0 != "0xfeed" {
		t.Fatalf("raw ref missing: %+v", event.Raw)
	}

	derr := NewDecodeError(LogRecord{TxHash: "0xdef"}, "decode", errors.New("boom"))
	if derr.Topic0 != "" || derr.Stage != "decode" || derr.Error != "boom" || derr.TxHash != "0xdef" {
		t.Fatalf("unexpected decode error: %+v", derr)
	}
}
