package protection

import (
	"fmt"

	"github.com/google/uuid"
)

// localAdapter stands in for a real protection provider so the rest of the
// system can be exercised without a live upstream. Its order keys are not
// tradable orders; deployment configuration must keep this adapter out of
// production.
type localAdapter struct{}

// synthesizeKeys mints a recognisable local TP/SL key pair for a position.
func (localAdapter) synthesizeKeys(positionID string) (tpKey, slKey string) {
	nonce := uuid.NewString()[:8]
	tpKey = fmt.Sprintf("local-tp:%s:%s", positionID, nonce)
	slKey = fmt.Sprintf("local-sl:%s:%s", positionID, nonce)
	return tpKey, slKey
}
