// Package submit turns finalized parameters into one chain interaction and
// decides when the submit action is available at all.
package submit

import (
	"fmt"
	"math/big"
	"strings"

	"omnipool/internal/models"
)

// ValidationKind classifies user-facing reasons a submission is blocked
type ValidationKind string

const (
	ValidationInsufficientBalance   ValidationKind = "insufficient_balance"
	ValidationInsufficientLiquidity ValidationKind = "insufficient_liquidity"
	ValidationExcessivePriceImpact  ValidationKind = "excessive_price_impact"
	ValidationInsufficientGasToken  ValidationKind = "insufficient_gas_token"
	ValidationOutdatedClient        ValidationKind = "outdated_client"
)

// ValidationError is a pre-submission check failure shown to the user
type ValidationError struct {
	Kind    ValidationKind
	Message string
}

// CheckGmxAccountBalance verifies the account can cover both the collateral
// and the relay's gas payment. Returns the specific insufficient-gas-token
// error when the combined spend exceeds the balance.
func CheckGmxAccountBalance(collateralAmount, gasPaymentTokenAmount, accountBalance *big.Int) *ValidationError {
	if collateralAmount == nil || gasPaymentTokenAmount == nil || accountBalance == nil {
		return nil
	}
	required := new(big.Int).Add(collateralAmount, gasPaymentTokenAmount)
	if required.Cmp(accountBalance) > 0 {
		return &ValidationError{
			Kind:    ValidationInsufficientGasToken,
			Message: "Insufficient balance to cover the gas payment",
		}
	}
	return nil
}

// GateInput is the aggregated state the gate decides from
type GateInput struct {
	Operation models.Operation

	AccountConnected     bool
	CombinationSupported bool
	AllowanceLoading     bool
	Validation           *ValidationError
	NeedsApproval        []string
	Approving            bool
	Submitting           bool
	FeesLoaded           bool
}

// ButtonState is the single submit-button decision
type ButtonState struct {
	Enabled bool
	Label   string
	Tooltip string
}

// EvaluateGate maps the aggregated state to one button state. States are
// checked in fixed priority order and the first match wins; a validation
// error always outranks readiness.
func EvaluateGate(in GateInput) ButtonState {
	switch {
	case !in.AccountConnected:
		return ButtonState{Label: "Connect Wallet"}

	case !in.CombinationSupported:
		return ButtonState{
			Label:   actionLabel(in.Operation),
			Tooltip: "This pay source is not supported for the selected network",
		}

	case in.AllowanceLoading:
		return ButtonState{Label: "Loading..."}

	case in.Validation != nil:
		return ButtonState{
			Label:   actionLabel(in.Operation),
			Tooltip: in.Validation.Message,
		}

	case len(in.NeedsApproval) > 0:
		return ButtonState{
			Enabled: true,
			Label:   fmt.Sprintf("Approve %s", strings.Join(in.NeedsApproval, ", ")),
		}

	case in.Approving:
		return ButtonState{Label: "Approving..."}

	case in.Submitting:
		return ButtonState{Label: "Submitting..."}

	case !in.FeesLoaded:
		return ButtonState{Label: "Loading fees..."}
	}

	return ButtonState{Enabled: true, Label: actionLabel(in.Operation)}
}

func actionLabel(op models.Operation) string {
	if op == models.OperationWithdrawal {
		return "Withdraw"
	}
	return "Deposit"
}
