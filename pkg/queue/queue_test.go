package queue

import (
	"encoding/json"
	"testing"

	"TradeForge/pkg/logger"
)

type samplePayload struct {
	Symbol  string `json:"symbol"`
	Attempt int    `json:"attempt"`
}

func TestParsePayloadShapes(t *testing.T) {
	want := samplePayload{Symbol: "BTCUSDT", Attempt: 2}

	fromValue, err := ParsePayload[samplePayload](want)
	if err != nil || *fromValue != want {
		t.Fatalf("value payload: %v %+v", err, fromValue)
	}

	fromPtr, err := ParsePayload[samplePayload](&want)
	if err != nil || *fromPtr != want {
		t.Fatalf("pointer payload: %v %+v", err, fromPtr)
	}

	fromMap, err := ParsePayload[samplePayload](map[string]interface{}{
		"symbol": "BTCUSDT", "attempt": 2,
	})
	if err != nil || *fromMap != want {
		t.Fatalf("map payload: %v %+v", err, fromMap)
	}

	raw, _ := json.Marshal(want)
	fromRaw, err := ParsePayload[samplePayload](json.RawMessage(raw))
	if err != nil || *fromRaw != want {
		t.Fatalf("raw payload: %v %+v", err, fromRaw)
	}

	if _, err := ParsePayload[samplePayload](42); err == nil {
		t.Fatalf("unsupported payload type must error")
	}
}

func TestQueueKeysSharePrefix(t *testing.T) {
	q := NewRedisQueue(logger.Nop(), nil, nil, ModeProducerOnly)
	if q.queueKey() != "tradeforge:queue:messages" {
		t.Fatalf("unexpected queue key %q", q.queueKey())
	}
	if q.retryKey() != "tradeforge:queue:retry" {
		t.Fatalf("unexpected retry key %q", q.retryKey())
	}
	if q.deadLetterKey() != "tradeforge:queue:dlq" {
		t.Fatalf("unexpected dead-letter key %q", q.deadLetterKey())
	}

	custom := NewRedisQueue(logger.Nop(), nil, nil, ModeProducerOnly, WithKeyPrefix("other"))
	if custom.queueKey() != "other:messages" {
		t.Fatalf("prefix override not applied: %q", custom.queueKey())
	}
}

func TestModeString(t *testing.T) {
	cases := map[QueueMode]string{
		ModeProducerOnly:     "producer-only",
		ModeConsumerOnly:     "consumer-only",
		ModeProducerConsumer: "producer-consumer",
	}
	for mode, want := range cases {
		q := NewRedisQueue(logger.Nop(), nil, nil, mode)
		if got := q.modeString(); got != want {
			t.Fatalf("mode %d: got %q want %q", mode, got, want)
		}
	}
}
