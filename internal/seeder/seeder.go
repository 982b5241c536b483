package seeder

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/orderview/orderview/internal/database"
	"github.com/orderview/orderview/internal/entity"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// Orders seeds the demo dataset: two members, four catalog items, and two
// orders with two lines each. A non-empty members table skips the whole run.
func (s *Seeder) Orders(ctx context.Context) error {
	count, err := s.db.NewSelect().Model((*entity.Member)(nil)).Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		if s.logger != nil {
			s.logger.Info("seed data already present; skipping")
		}
		return nil
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		members := []*entity.Member{
			{Name: "userA", Address: entity.Address{City: "Seoul", Street: "1", Zipcode: "1111"}},
			{Name: "userB", Address: entity.Address{City: "Jinju", Street: "2", Zipcode: "2222"}},
		}
		if _, err := tx.NewInsert().Model(&members).Exec(ctx); err != nil {
			return err
		}

		items := []*entity.Item{
			{Name: "JPA1 BOOK", Price: 10000, StockQuantity: 100},
			{Name: "JPA2 BOOK", Price: 20000, StockQuantity: 100},
			{Name: "SPRING1 BOOK", Price: 20000, StockQuantity: 200},
			{Name: "SPRING2 BOOK", Price: 40000, StockQuantity: 300},
		}
		if _, err := tx.NewInsert().Model(&items).Exec(ctx); err != nil {
			return err
		}

		type orderSpec struct {
			member *entity.Member
			lines  []*entity.OrderItem
		}
		specs := []orderSpec{
			{
				member: members[0],
				lines: []*entity.OrderItem{
					{ItemID: items[0].ID, OrderPrice: items[0].Price, Count: 1},
					{ItemID: items[1].ID, OrderPrice: items[1].Price, Count: 2},
				},
			},
			{
				member: members[1],
				lines: []*entity.OrderItem{
					{ItemID: items[2].ID, OrderPrice: items[2].Price, Count: 3},
					{ItemID: items[3].ID, OrderPrice: items[3].Price, Count: 4},
				},
			},
		}

		now := time.Now().UTC()
		for _, spec := range specs {
			delivery := &entity.Delivery{
				Status:  entity.DeliveryReady,
				Address: spec.member.Address,
			}
			if _, err := tx.NewInsert().Model(delivery).Exec(ctx); err != nil {
				return err
			}

			order := &entity.Order{
				MemberID:   spec.member.ID,
				DeliveryID: delivery.ID,
				Status:     entity.StatusOrdered,
				OrderedAt:  now,
			}
			if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
				return err
			}

			for _, line := range spec.lines {
				line.OrderID = order.ID
			}
			if _, err := tx.NewInsert().Model(&spec.lines).Exec(ctx); err != nil {
				return err
			}
		}

		if s.logger != nil {
			s.logger.Info("seeded orders",
				zap.Int("members", len(members)),
				zap.Int("items", len(items)),
				zap.Int("orders", len(specs)),
			)
		}
		return nil
	})
}
