package projection

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/smartdevs17/hackathon-platform/internal/models"
	"github.com/smartdevs17/hackathon-platform/pkg/utils"
)

// EtherDecimals is the number of fractional digits of the native token
const EtherDecimals = 18

var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(EtherDecimals), nil)

// The last instant that still renders with a four-digit year
var maxDeadline = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC).Unix()

// FormatEther renders a wei amount in whole-token units without rounding.
// The result always has a fractional part: 0 -> "0.0", 10^18 -> "1.0".
func FormatEther(wei *big.Int) (string, error) {
	if err := checkUnsigned("prizePool", wei); err != nil {
		return "", err
	}

	whole, frac := new(big.Int).QuoRem(wei, weiPerEther, new(big.Int))

	fraction := frac.String()
	fraction = strings.Repeat("0", EtherDecimals-len(fraction)) + fraction
	fraction = strings.TrimRight(fraction, "0")
	if fraction == "" {
		fraction = "0"
	}

	return whole.String() + "." + fraction, nil
}

// ParseEther converts a decimal token amount such as "0.1" into wei
func ParseEther(amount string) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, invalidAmount(amount, "amount is empty")
	}

	whole, fraction, _ := strings.Cut(amount, ".")
	if whole == "" {
		whole = "0"
	}
	if len(fraction) > EtherDecimals {
		return nil, invalidAmount(amount, "more than 18 decimal places")
	}
	if !isDigits(whole) || (fraction != "" && !isDigits(fraction)) {
		return nil, invalidAmount(amount, "not a non-negative decimal number")
	}

	digits := whole + fraction + strings.Repeat("0", EtherDecimals-len(fraction))
	wei, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, invalidAmount(amount, "not a non-negative decimal number")
	}
	return wei, nil
}

// FormatDeadline renders seconds since the epoch as an ISO-8601 UTC timestamp
func FormatDeadline(seconds *big.Int) (string, error) {
	if err := checkUnsigned("deadline", seconds); err != nil {
		return "", err
	}
	if !seconds.IsInt64() || seconds.Int64() > maxDeadline {
		return "", utils.NewAppError(utils.ErrCodeMalformedTuple,
			"Deadline out of range", seconds.String())
	}

	return time.Unix(seconds.Int64(), 0).UTC().Format(models.DeadlineLayout), nil
}

// FormatUint renders a wide unsigned integer as a decimal string
func FormatUint(field string, v *big.Int) (string, error) {
	if err := checkUnsigned(field, v); err != nil {
		return "", err
	}
	return v.String(), nil
}

// ParseID parses a base-10 identifier supplied by a caller
func ParseID(id string) (*big.Int, error) {
	id = strings.TrimSpace(id)
	if id == "" || !isDigits(id) {
		return nil, utils.NewAppError(utils.ErrCodeInvalidInput,
			"Identifier must be a non-negative integer", id)
	}
	v, _ := new(big.Int).SetString(id, 10)
	return v, nil
}

func checkUnsigned(field string, v *big.Int) error {
	if v == nil {
		return utils.NewAppError(utils.ErrCodeMalformedTuple, "Missing numeric field", field)
	}
	if v.Sign() < 0 {
		return utils.NewAppError(utils.ErrCodeMalformedTuple, "Negative numeric field", field+"="+v.String())
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func invalidAmount(amount, reason string) error {
	return utils.NewAppError(utils.ErrCodeInvalidInput, "Invalid token amount "+fmt.Sprintf("%q", amount), reason)
}
