// Package notify publishes workflow events for downstream consumers
// (supplier notification workers, dashboards). Delivery is best effort:
// a publish failure never fails the request that triggered it.
package notify

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	SubjectAwardGranted     = "procurement.award.granted"
	SubjectAwardFinalized   = "procurement.award.finalized"
	SubjectCarnivalDecision = "procurement.carnival.decision"
)

type Event struct {
	EventID    uuid.UUID `json:"event_id"`
	TenderID   uuid.UUID `json:"tender_id,omitempty"`
	CarnivalID uuid.UUID `json:"carnival_id,omitempty"`
	BidID      uuid.UUID `json:"bid_id,omitempty"`
	SupplierID uuid.UUID `json:"supplier_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type Publisher interface {
	Publish(subject string, ev Event)
}

// NATSPublisher sends events over a NATS connection.
type NATSPublisher struct {
	nc *nats.Conn
}

func Connect(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{nc: nc}, nil
}

// Publish marshals and sends the event asynchronously. Failures are logged
// and dropped: notification success is decoupled from workflow success.
func (p *NATSPublisher) Publish(subject string, ev Event) {
	ev.EventID = uuid.New()
	ev.Timestamp = time.Now().UTC()
	go func() {
		data, err := json.Marshal(ev)
		if err != nil {
			log.Printf("notify: marshal %s: %v", subject, err)
			return
		}
		if err := p.nc.Publish(subject, data); err != nil {
			log.Printf("notify: publish %s: %v", subject, err)
		}
	}()
}

func (p *NATSPublisher) Close() {
	p.nc.Drain()
}

// Noop discards events; used when NATS_URL is not configured and in tests.
type Noop struct{}

func (Noop) Publish(string, Event) {}
