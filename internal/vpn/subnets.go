// Package vpn holds the site subnet-pair codec and the lifecycle status
// rules shared by sites and VPN policies.
package vpn

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/edvin/netedge/internal/model"
)

const (
	pairSeparator = ";"
	sideSeparator = "-"
)

// ErrInvalidSubnets marks a subnet pair list that cannot be stored.
var ErrInvalidSubnets = errors.New("invalid subnet pairs")

// pairPattern splits on the first '-', so only the peer side may hold one.
var pairPattern = regexp.MustCompile(`^(.*?)-(.*)$`)

// EncodeSubnetPairs renders pairs as "l1,l2-p1;l3-p3". Pairs whose local
// side contains '-' or whose sides contain ';' are rejected since they would
// not decode back to the same value.
func EncodeSubnetPairs(pairs []model.SubnetPair) (string, error) {
	if len(pairs) == 0 {
		return "", fmt.Errorf("%w: at least one pair is required", ErrInvalidSubnets)
	}

	parts := make([]string, 0, len(pairs))
	for i, p := range pairs {
		local := strings.TrimSpace(p.LocalSubnets)
		peer := strings.TrimSpace(p.PeerSubnets)
		switch {
		case local == "" || peer == "":
			return "", fmt.Errorf("%w: pair %d: local and peer subnets are required", ErrInvalidSubnets, i)
		case strings.Contains(local, sideSeparator):
			return "", fmt.Errorf("%w: pair %d: local subnets must not contain %q", ErrInvalidSubnets, i, sideSeparator)
		case strings.Contains(local, pairSeparator) || strings.Contains(peer, pairSeparator):
			return "", fmt.Errorf("%w: pair %d: subnets must not contain %q", ErrInvalidSubnets, i, pairSeparator)
		}
		parts = append(parts, local+sideSeparator+peer)
	}
	return strings.Join(parts, pairSeparator), nil
}

// DecodeSubnetPairs parses the stored form. Segments without a separator
// are skipped.
func DecodeSubnetPairs(s string) []model.SubnetPair {
	pairs := []model.SubnetPair{}
	if s == "" {
		return pairs
	}
	for _, seg := range strings.Split(s, pairSeparator) {
		m := pairPattern.FindStringSubmatch(seg)
		if m == nil {
			continue
		}
		pairs = append(pairs, model.SubnetPair{LocalSubnets: m[1], PeerSubnets: m[2]})
	}
	return pairs
}

// SplitSubnets returns the individual CIDRs of one pair side.
func SplitSubnets(side string) []string {
	var out []string
	for _, s := range strings.Split(side, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
