package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/obycode/stackflow-sub001/internal/model"
	"github.com/obycode/stackflow-sub001/internal/wtlog"
)

// DefaultTimeout is the outbound RPC deadline for the readonly
// verifier: bounded by a timeout, default 10s.
const DefaultTimeout = 10 * time.Second

// contractErrorReasons maps the on-chain contract's u100..u127 error
// codes to human-readable reasons.
var contractErrorReasons = map[int]string{
	100: "invalid-sender",
	101: "invalid-signature",
	102: "invalid-principal",
	103: "pipe-not-found",
	104: "stale-nonce",
	105: "invalid-action",
}

func reasonForCode(code int) string {
	if r, ok := contractErrorReasons[code]; ok {
		return r
	}
	if code >= 110 && code <= 127 {
		return fmt.Sprintf("unmapped-contract-error(u%d)", code)
	}
	return fmt.Sprintf("contract-error(u%d)", code)
}

// Readonly verifies a SignatureState by invoking the on-chain contract's
// verify-signature-request read-only function once per side.
type Readonly struct {
	APIBase    string
	ContractID string
	HTTPClient *http.Client
}

func NewReadonly(apiBase, contractID string) *Readonly {
	return &Readonly{
		APIBase:    strings.TrimRight(apiBase, "/"),
		ContractID: contractID,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

type readOnlyCallRequest struct {
	Sender    string   `json:"sender"`
	Arguments []string `json:"arguments"`
}

type readOnlyCallResponse struct {
	Okay   bool   `json:"okay"`
	Result string `json:"result"`
}

func (r *Readonly) Verify(ctx context.Context, ss model.SignatureState) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	myResult, err := r.callVerifySignatureRequest(ctx, ss, ss.ForPrincipal, ss.MySignature)
	if err != nil {
		return Result{}, err
	}
	if !myResult.Valid {
		return myResult, nil
	}

	theirResult, err := r.callVerifySignatureRequest(ctx, ss, ss.WithPrincipal, ss.TheirSignature)
	if err != nil {
		return Result{}, err
	}
	return theirResult, nil
}

func (r *Readonly) callVerifySignatureRequest(ctx context.Context, ss model.SignatureState, signer, signature string) (Result, error) {
	body, err := json.Marshal(readOnlyCallRequest{
		Sender:    signer,
		Arguments: []string{ss.PipeID, signer, signature},
	})
	if err != nil {
		return Result{}, err
	}

	url := fmt.Sprintf("%s/v2/contracts/call-read/%s/verify-signature-request",
		r.APIBase, r.ContractID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		wtlog.VFYLog.Warnf("readonly verify RPC failed for pipe %s: %v", ss.PipeID, err)
		return Result{}, err
	}
	defer resp.Body.Close()

	var parsed readOnlyCallResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, err
	}

	if parsed.Okay {
		return Result{Valid: true}, nil
	}

	code := 0
	fmt.Sscanf(strings.TrimPrefix(parsed.Result, "u"), "%d", &code)
	return Result{Valid: false, Reason: reasonForCode(code)}, nil
}
