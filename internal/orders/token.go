package orders

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const tokenPrefix = "ORDER-"

// newPickupCode returns a short collection code handed to the customer when
// the order is ready.
func newPickupCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:6])
}

// buildPickupToken assembles the scannable token for an order and its code.
func buildPickupToken(orderID uuid.UUID, code string) string {
	return fmt.Sprintf("%s%s-%s", tokenPrefix, orderID, code)
}

// parsePickupToken splits a token back into the order id and code. The code
// never contains dashes, so everything after the last dash is the code.
func parsePickupToken(token string) (uuid.UUID, string, error) {
	rest, ok := strings.CutPrefix(token, tokenPrefix)
	if !ok {
		return uuid.Nil, "", fmt.Errorf("malformed pickup token")
	}
	idx := strings.LastIndex(rest, "-")
	if idx <= 0 || idx == len(rest)-1 {
		return uuid.Nil, "", fmt.Errorf("malformed pickup token")
	}
	orderID, err := uuid.Parse(rest[:idx])
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("malformed pickup token")
	}
	return orderID, rest[idx+1:], nil
}
