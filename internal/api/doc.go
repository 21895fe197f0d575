// Package api serves the tenant-facing REST API for firewall objects, rules
// and IPsec VPN resources under /api/v1.
package api
