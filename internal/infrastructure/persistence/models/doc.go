// Package models holds the gorm rows behind the invoice store. Domain types
// never carry gorm tags; repositories convert at the boundary.
//
// invoices and payments are separate tables. A payment row carries its
// payment_type ("card" or "cheque") and the other variant's columns stay NULL.
package models
