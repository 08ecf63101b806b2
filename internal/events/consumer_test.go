package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/clientflow/alertrunner/internal/config"
	"github.com/clientflow/alertrunner/internal/domain/alert"
	"github.com/clientflow/alertrunner/internal/pkg/logger"
)

type triggerCall struct {
	eventType string
	tenantID  string
	customer  string
	metadata  map[string]interface{}
}

type fakeRunner struct {
	mu       sync.Mutex
	calls    []triggerCall
	failures int
}

func (r *fakeRunner) RunScheduled(ctx context.Context) (*alert.RunSummary, error) {
	return &alert.RunSummary{}, nil
}

func (r *fakeRunner) TriggerEvent(ctx context.Context, eventType, tenantID string, metadata map[string]interface{}) (*alert.EventResult, error) {
	return r.record(triggerCall{eventType: eventType, tenantID: tenantID, metadata: metadata}, tenantID)
}

func (r *fakeRunner) TriggerEventByStripeCustomer(ctx context.Context, eventType, customerID string, metadata map[string]interface{}) (*alert.EventResult, error) {
	return r.record(triggerCall{eventType: eventType, customer: customerID, metadata: metadata}, "tenant-of-"+customerID)
}

func (r *fakeRunner) record(call triggerCall, tenantID string) (*alert.EventResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	if r.failures > 0 {
		r.failures--
		return nil, errors.New("database unavailable")
	}
	return &alert.EventResult{Success: true, TenantID: tenantID}, nil
}

func (r *fakeRunner) Calls() []triggerCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]triggerCall(nil), r.calls...)
}

type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.messages) > 0 {
		msg := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func (r *fakeReader) Committed() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

func TestNewConsumer(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.KafkaConfig
		wantErr bool
	}{
		{name: "valid", cfg: config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "business-events", GroupID: "alertrunner"}},
		{name: "no brokers", cfg: config.KafkaConfig{Topic: "business-events", GroupID: "alertrunner"}, wantErr: true},
		{name: "blank topic", cfg: config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "  ", GroupID: "alertrunner"}, wantErr: true},
		{name: "no group", cfg: config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "business-events"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewConsumer(tt.cfg, &fakeRunner{}, testLogger())
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewConsumer() error = %v, wantErr %v", err, tt.wantErr)
			}
			if c != nil {
				_ = c.Close()
			}
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Event
		wantErr bool
	}{
		{
			name:    "tenant event",
			payload: `{"eventType":"booking_created","tenantId":"t1","metadata":{"amount":120}}`,
			want:    Event{EventType: "booking_created", TenantID: "t1", Metadata: map[string]interface{}{"amount": float64(120)}},
		},
		{
			name:    "customer event",
			payload: `{"eventType":"subscription_cancelled","stripeCustomerId":"cus_1"}`,
			want:    Event{EventType: "subscription_cancelled", StripeCustomerID: "cus_1"},
		},
		{name: "not json", payload: `booking`, wantErr: true},
		{name: "missing type", payload: `{"tenantId":"t1"}`, wantErr: true},
		{name: "missing tenant", payload: `{"eventType":"booking_created"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.EventType != tt.want.EventType || got.TenantID != tt.want.TenantID || got.StripeCustomerID != tt.want.StripeCustomerID {
				t.Errorf("Decode() = %+v, want %+v", got, tt.want)
			}
			if len(got.Metadata) != len(tt.want.Metadata) {
				t.Errorf("Decode() metadata = %v, want %v", got.Metadata, tt.want.Metadata)
			}
		})
	}
}

func TestConsumer_Handle(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantCall   triggerCall
		wantTenant string
		wantErr    bool
	}{
		{
			name:       "routes by tenant",
			payload:    `{"eventType":"booking_created","tenantId":"t1"}`,
			wantCall:   triggerCall{eventType: "booking_created", tenantID: "t1"},
			wantTenant: "t1",
		},
		{
			name:       "routes by customer",
			payload:    `{"eventType":"payment_failed","stripeCustomerId":"cus_9"}`,
			wantCall:   triggerCall{eventType: "payment_failed", customer: "cus_9"},
			wantTenant: "tenant-of-cus_9",
		},
		{
			name:       "tenant wins over customer",
			payload:    `{"eventType":"payment_failed","tenantId":"t2","stripeCustomerId":"cus_9"}`,
			wantCall:   triggerCall{eventType: "payment_failed", tenantID: "t2"},
			wantTenant: "t2",
		},
		{name: "malformed", payload: `{"eventType":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			c := newConsumer(&fakeReader{}, runner, "business-events", testLogger())

			result, err := c.Handle(context.Background(), kafka.Message{Value: []byte(tt.payload)})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Handle() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, errMalformed) {
					t.Errorf("Handle() error = %v, want malformed", err)
				}
				if len(runner.Calls()) != 0 {
					t.Error("runner called for a malformed event")
				}
				return
			}

			calls := runner.Calls()
			if len(calls) != 1 {
				t.Fatalf("runner calls = %d, want 1", len(calls))
			}
			got := calls[0]
			if got.eventType != tt.wantCall.eventType || got.tenantID != tt.wantCall.tenantID || got.customer != tt.wantCall.customer {
				t.Errorf("runner call = %+v, want %+v", got, tt.wantCall)
			}
			if result.TenantID != tt.wantTenant {
				t.Errorf("result.TenantID = %q, want %q", result.TenantID, tt.wantTenant)
			}
		})
	}
}

func TestConsumer_Run(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		{Offset: 1, Value: []byte(`{"eventType":"booking_created","tenantId":"t1"}`)},
		{Offset: 2, Value: []byte(`not an event`)},
		{Offset: 3, Value: []byte(`{"eventType":"payment_failed","stripeCustomerId":"cus_1"}`)},
	}}
	runner := &fakeRunner{failures: 1}
	c := newConsumer(reader, runner, "business-events", testLogger())
	c.retryDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for len(reader.Committed()) < 3 {
		select {
		case <-deadline:
			cancel()
			t.Fatalf("committed = %v, want 3 offsets", reader.Committed())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}

	committed := reader.Committed()
	for i, want := range []int64{1, 2, 3} {
		if committed[i] != want {
			t.Errorf("committed[%d] = %d, want %d", i, committed[i], want)
		}
	}
	// first event failed once and was retried
	if got := len(runner.Calls()); got != 3 {
		t.Errorf("runner calls = %d, want 3", got)
	}
}

func TestConsumer_Close(t *testing.T) {
	reader := &fakeReader{}
	c := newConsumer(reader, &fakeRunner{}, "business-events", testLogger())
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !reader.closed {
		t.Error("reader not closed")
	}
}
