package core

import (
	"fmt"
	"strings"
)

// ParseOverride parses the "<id>@YYYY-MM" form used by the HTTP API and CLI.
// The id may itself contain '@'; the last one separates the period.
func ParseOverride(s string) (EarlySettlementOverride, error) {
	s = strings.TrimSpace(s)
	i := strings.LastIndex(s, "@")
	if i <= 0 || i == len(s)-1 {
		return EarlySettlementOverride{}, fmt.Errorf("%w: payoff %q must be <id>@YYYY-MM", ErrInvalidPeriod, s)
	}
	p, err := ParsePeriod(s[i+1:])
	if err != nil {
		return EarlySettlementOverride{}, fmt.Errorf("%w: payoff %q", err, s)
	}
	return EarlySettlementOverride{ObligationID: s[:i], Target: p}, nil
}

// String is the inverse of ParseOverride.
func (o EarlySettlementOverride) String() string {
	return o.ObligationID + "@" + o.Target.String()
}
