// Package leadclaimengine distributes pool leads to coaching-institute tenants:
// per-tenant fit scoring, the AVAILABLE/CLAIMED/LOCKED visibility machine and
// claim arbitration under the tenant's configured claim mode.
//
// Domain and application code depend only on ports; adapters (memory,
// postgres, redis, prometheus) are composed in module.go and bootstrap.
package leadclaimengine
