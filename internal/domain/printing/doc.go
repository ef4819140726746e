// Package printing contains the document printing bounded context.
// It defines the closed set of financial document types the service can
// render (invoices, receipts, payment vouchers and statements of payment),
// the company and operator metadata stamped on every page, and the
// computed totals each document carries before it reaches a template.
package printing
