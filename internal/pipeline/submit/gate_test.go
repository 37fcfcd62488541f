package submit

import (
	"math/big"
	"testing"

	"omnipool/internal/models"
)

func readyInput() GateInput {
	return GateInput{
		Operation:            models.OperationDeposit,
		AccountConnected:     true,
		CombinationSupported: true,
		FeesLoaded:           true,
	}
}

func TestEvaluateGatePriorityOrder(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*GateInput)
		wantEnabled bool
		wantLabel   string
	}{
		{
			"no account outranks everything",
			func(in *GateInput) {
				in.AccountConnected = false
				in.Validation = &ValidationError{Kind: ValidationInsufficientBalance, Message: "x"}
				in.Submitting = true
			},
			false, "Connect Wallet",
		},
		{
			"unsupported combination outranks validation",
			func(in *GateInput) {
				in.CombinationSupported = false
				in.Validation = &ValidationError{Kind: ValidationInsufficientBalance, Message: "x"}
			},
			false, "Deposit",
		},
		{
			"allowance loading outranks validation",
			func(in *GateInput) {
				in.AllowanceLoading = true
				in.Validation = &ValidationError{Kind: ValidationInsufficientBalance, Message: "x"}
			},
			false, "Loading...",
		},
		{
			"validation outranks approval",
			func(in *GateInput) {
				in.Validation = &ValidationError{Kind: ValidationInsufficientBalance, Message: "Insufficient balance"}
				in.NeedsApproval = []string{"USDC"}
			},
			false, "Deposit",
		},
		{
			"approval needed",
			func(in *GateInput) { in.NeedsApproval = []string{"USDC", "WETH"} },
			true, "Approve USDC, WETH",
		},
		{
			"approving in progress",
			func(in *GateInput) { in.Approving = true },
			false, "Approving...",
		},
		{
			"submitting in progress",
			func(in *GateInput) { in.Submitting = true },
			false, "Submitting...",
		},
		{
			"fees not loaded",
			func(in *GateInput) { in.FeesLoaded = false },
			false, "Loading fees...",
		},
		{
			"ready",
			func(in *GateInput) {},
			true, "Deposit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := readyInput()
			tt.mutate(&in)

			state := EvaluateGate(in)
			if state.Enabled != tt.wantEnabled {
				t.Errorf("enabled = %v, want %v", state.Enabled, tt.wantEnabled)
			}
			if state.Label != tt.wantLabel {
				t.Errorf("label = %q, want %q", state.Label, tt.wantLabel)
			}
		})
	}
}

func TestEvaluateGateValidationTooltip(t *testing.T) {
	in := readyInput()
	in.Validation = &ValidationError{
		Kind:    ValidationExcessivePriceImpact,
		Message: "Price impact is too high",
	}

	state := EvaluateGate(in)
	if state.Enabled {
		t.Error("validation error must disable the button")
	}
	if state.Tooltip != "Price impact is too high" {
		t.Errorf("tooltip = %q, want the validation message", state.Tooltip)
	}
}

func TestEvaluateGateWithdrawLabel(t *testing.T) {
	in := readyInput()
	in.Operation = models.OperationWithdrawal

	state := EvaluateGate(in)
	if state.Label != "Withdraw" {
		t.Errorf("label = %q, want Withdraw", state.Label)
	}
}

func TestCheckGmxAccountBalance(t *testing.T) {
	tests := []struct {
		name       string
		collateral int64
		gasPayment int64
		balance    int64
		wantError  bool
	}{
		{"covered exactly", 900, 100, 1000, false},
		{"covered with headroom", 500, 100, 1000, false},
		{"collateral alone fits but combined spend does not", 950, 100, 1000, true},
		{"nothing fits", 2000, 100, 1000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := CheckGmxAccountBalance(
				big.NewInt(tt.collateral),
				big.NewInt(tt.gasPayment),
				big.NewInt(tt.balance),
			)
			if tt.wantError {
				if verr == nil {
					t.Fatal("expected a validation error")
				}
				if verr.Kind != ValidationInsufficientGasToken {
					t.Errorf("kind = %s, want %s", verr.Kind, ValidationInsufficientGasToken)
				}
			} else if verr != nil {
				t.Errorf("unexpected validation error: %+v", verr)
			}
		})
	}
}
