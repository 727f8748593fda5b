package database

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Sale is an order: a dine-in table tab, take-away ticket, or delivery order.
// DispatchAmount and DeliveryCharges are snapshots of the settings taken at
// create/update time; later settings edits never alter historical sales.
type Sale struct {
	ID              int64
	ClientName      string
	SaleDate        time.Time
	TotalAmount     pgtype.Numeric
	AreaID          pgtype.Int8
	OrderType       string
	PhoneNo         pgtype.Text
	DeliveryAddress pgtype.Text
	UserID          pgtype.Int8
	DispatchAmount  pgtype.Numeric
	DeliveryCharges pgtype.Numeric
	Closed          bool
}

type SaleItem struct {
	ID        int64
	SaleID    int64
	ItemCode  string
	Qty       int32
	SalePrice pgtype.Numeric
}

// Area is a physical table. IsActive is the authoritative "occupied" flag:
// set when an open sale targets the area, cleared when that sale closes.
type Area struct {
	ID       int64
	Name     string
	Remarks  pgtype.Text
	IsActive bool
}

type Product struct {
	ID         int64
	ItemCode   string
	ItemName   string
	SalePrice  pgtype.Numeric
	QtyBalance pgtype.Numeric
	CategoryID pgtype.Int8
	IsActive   bool
}

type Category struct {
	ID       int64
	Name     string
	Image    pgtype.Text
	IsActive bool
}

// Setting is the single configuration row read at order create/update time.
type Setting struct {
	ID                       int64
	PercentageServiceCharges pgtype.Numeric
	FixDeliveryCharges       pgtype.Numeric
}

type User struct {
	ID             int64
	Name           string
	HashedPassword string
	IsAdmin        bool
}
