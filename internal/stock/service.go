// Package stock applies confirmed sales to product stock. It is the single
// writer: the HTTP layer never touches stock levels, it only evaluates
// drafts against read-only snapshots.
package stock

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/dukahub/go-pos-sales/internal/kafka"
	"github.com/dukahub/go-pos-sales/internal/sales"
)

// Applier is the stock side of the database, satisfied by *sales.StockRepo.
type Applier interface {
	Applied(ctx context.Context, saleID string, itemCount int) (bool, error)
	ApplyAll(ctx context.Context, accountID, saleID string, items []sales.ItemQty) (bool, []sales.StockRejectedDetail, error)
	RestockAll(ctx context.Context, accountID, saleID string) error
}

// StatusWriter moves a sale through its status machine, satisfied by *sales.Repo.
type StatusWriter interface {
	SetSaleStatus(ctx context.Context, accountID, saleID string, from, to sales.Status) error
}

// Cache is event dedup plus the sale-status read cache, satisfied by
// *redisx.Cache. Dedup is only marked once an event has been fully
// processed; a failed attempt stays unmarked so redelivery retries it.
type Cache interface {
	SeenEvent(ctx context.Context, service, eventID string) bool
	MarkEvent(ctx context.Context, service, eventID string)
	SetSaleStatus(ctx context.Context, accountID, saleID, status string)
}

// Publisher is satisfied by *kafkax.Producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Service struct {
	Repo             Applier
	Sales            StatusWriter
	Cache            Cache
	ProducerApplied  Publisher // publishes sale.stock.applied
	ProducerRejected Publisher // publishes sale.stock.rejected
	ServiceName      string
}

// HandleSaleConfirmed is the consumer handler for sale.confirmed.
func (s *Service) HandleSaleConfirmed(ctx context.Context, m kafkago.Message) error {
	var env sales.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != sales.EventSaleConfirmed {
		return nil // ignore
	}

	if s.Cache.SeenEvent(ctx, s.ServiceName, env.EventID) {
		return nil
	}

	p, err := kafkax.UnwrapPayload[sales.SaleConfirmedPayload](env.Payload)
	if err != nil {
		return err
	}

	items := make([]sales.ItemQty, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, sales.ItemQty{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	// Redelivered event after a successful apply: finish the bookkeeping
	// and re-publish, don't re-deduct.
	applied, err := s.Repo.Applied(ctx, p.SaleID, len(items))
	if err != nil {
		return err
	}
	if !applied {
		var details []sales.StockRejectedDetail
		applied, details, err = s.Repo.ApplyAll(ctx, p.AccountID, p.SaleID, items)
		if err != nil {
			return err
		}
		if !applied {
			if err := s.transition(ctx, p.AccountID, p.SaleID, sales.StatusFailed); err != nil {
				return err
			}
			s.Cache.SetSaleStatus(ctx, p.AccountID, p.SaleID, string(sales.StatusFailed))
			s.publishRejected(p.AccountID, p.SaleID, details, env.TraceID)
			s.Cache.MarkEvent(ctx, s.ServiceName, env.EventID)
			return nil
		}
	}

	if err := s.transition(ctx, p.AccountID, p.SaleID, sales.StatusCompleted); err != nil {
		return err
	}
	s.Cache.SetSaleStatus(ctx, p.AccountID, p.SaleID, string(sales.StatusCompleted))
	s.publishApplied(p.AccountID, p.SaleID, items, env.TraceID)
	s.Cache.MarkEvent(ctx, s.ServiceName, env.EventID)
	return nil
}

// transition moves the sale out of CONFIRMED. A sale that already left
// CONFIRMED on an earlier attempt reports an invalid transition; that is
// completed work, not an error.
func (s *Service) transition(ctx context.Context, accountID, saleID string, to sales.Status) error {
	err := s.Sales.SetSaleStatus(ctx, accountID, saleID, sales.StatusConfirmed, to)
	if errors.Is(err, sales.ErrInvalidTransition) {
		return nil
	}
	return err
}

// HandleSaleVoided restocks a voided sale's items.
func (s *Service) HandleSaleVoided(ctx context.Context, m kafkago.Message) error {
	var env sales.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != sales.EventSaleVoided {
		return nil
	}

	if s.Cache.SeenEvent(ctx, s.ServiceName, env.EventID) {
		return nil
	}

	p, err := kafkax.UnwrapPayload[sales.SaleVoidedPayload](env.Payload)
	if err != nil {
		return err
	}
	if err := s.Repo.RestockAll(ctx, p.AccountID, p.SaleID); err != nil {
		return err
	}
	s.Cache.MarkEvent(ctx, s.ServiceName, env.EventID)
	return nil
}

func (s *Service) publishApplied(accountID, saleID string, items []sales.ItemQty, trace string) {
	ev := sales.Envelope{
		EventID:       uuid.NewString(),
		EventType:     sales.EventSaleStockApplied,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       trace,
		CorrelationID: saleID,
		Payload:       kafkax.MustMarshal(sales.SaleStockAppliedPayload{SaleID: saleID, AccountID: accountID, Items: items}),
	}
	s.ProducerApplied.Publish(sales.PartitionKey(saleID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(sales.EventSaleStockApplied)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (s *Service) publishRejected(accountID, saleID string, details []sales.StockRejectedDetail, trace string) {
	ev := sales.Envelope{
		EventID:       uuid.NewString(),
		EventType:     sales.EventSaleStockRejected,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       trace,
		CorrelationID: saleID,
		Payload: kafkax.MustMarshal(sales.SaleStockRejectedPayload{
			SaleID: saleID, AccountID: accountID, Reason: "OUT_OF_STOCK", Details: details,
		}),
	}
	s.ProducerRejected.Publish(sales.PartitionKey(saleID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(sales.EventSaleStockRejected)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
