package entity

import "github.com/uptrace/bun"

// Address is a value object embedded into members and deliveries.
type Address struct {
	City    string `bun:"city"`
	Street  string `bun:"street"`
	Zipcode string `bun:"zipcode"`
}

// Member is a registered customer.
type Member struct {
	bun.BaseModel `bun:"table:members,alias:m"`

	ID   int64  `bun:",pk,autoincrement"`
	Name string `bun:"name,notnull"`

	Address
}
