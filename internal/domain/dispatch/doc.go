// Package dispatch holds the service-order map domain: order and client
// records pulled from the CRM, the coordinate policy, marker descriptions and
// the filter catalog used by batch exports.
//
// Everything in this package is pure. Fetching records is the job of the CRM
// adapter in infrastructure/crm; composing them into markers is the job of
// application/mapexport.
package dispatch
