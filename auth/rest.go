package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chatline/chatline/contract"
	"github.com/chatline/chatline/fault"
)

const (
	identityToolkitBase = "https://identitytoolkit.googleapis.com/v1"
	secureTokenBase     = "https://securetoken.googleapis.com/v1"

	contentTypeHeader = "Content-Type"
	contentTypeJSON   = "application/json"
)

type nowFunc func() time.Time

func defaultNow() time.Time { return time.Now() }

func (r *Resolver) identityURL(method string) string {
	return fmt.Sprintf("%s/%s?key=%s", r.identityBase, method, r.apiKey)
}

func (r *Resolver) secureTokenURL() string {
	return fmt.Sprintf("%s/token?key=%s", r.secureTokenBase, r.apiKey)
}

// post sends one JSON request and decodes the response into out. Non-2xx
// responses are mapped through the Identity Toolkit error envelope;
// transport failures classify as transient.
func (r *Resolver) post(ctx context.Context, op, url string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fault.E(fault.KindInvalid, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fault.E(fault.KindInvalid, op, err)
	}
	req.Header.Set(contentTypeHeader, contentTypeJSON)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fault.E(fault.KindTransient, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fault.E(fault.KindTransient, op, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr contract.APIError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
			return fault.FromIdentityToolkit(op, apiErr.Error.Message)
		}
		return fault.Errorf(fault.KindAuth, op, "unexpected status %d: %s", resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fault.E(fault.KindAuth, op, err)
	}
	return nil
}
