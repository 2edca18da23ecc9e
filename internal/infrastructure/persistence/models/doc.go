// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
// - base.go: shared persistence fields (BaseModel, AggregateModel)
// - crm.go: customers and the bonus ledger
// - invoicing.go: invoices and invoice lines
package models
