// Package quotation models the quotation document: its fields, its priced
// line items and the totals derived from them. A Quotation lives for one
// render only and is never persisted.
package quotation
