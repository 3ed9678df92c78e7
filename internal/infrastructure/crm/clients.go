package crm

import (
	"bytes"
	"context"
	"strings"

	"github.com/osmap/backend/internal/domain/dispatch"
)

// FetchClient looks up a client and applies the activation gate. The record
// is returned alongside a ClientNotActive error so callers can log it.
func (c *Client) FetchClient(ctx context.Context, clientID string) (dispatch.ClientRecord, error) {
	if err := dispatch.ValidateClientID(clientID); err != nil {
		return dispatch.ClientRecord{}, err
	}
	clientID = strings.TrimSpace(clientID)

	body, err := c.doRequest(ctx, pathClientLookup, newSearchRequest(fieldClientID, clientID), true)
	if err != nil {
		return dispatch.ClientRecord{}, err
	}

	r, err := decodeClient(body, clientID)
	if err != nil {
		return dispatch.ClientRecord{}, err
	}

	client := clientFromRow(r, clientID)
	if err := client.CheckActive(); err != nil {
		return client, err
	}
	return client, nil
}

// decodeClient accepts a single object or a one-element array
func decodeClient(body []byte, clientID string) (row, error) {
	trimmed := bytes.TrimSpace(body)

	var r row
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var rows []row
		if err := decodeJSON(trimmed, &rows); err != nil {
			return nil, badPayload(pathClientLookup, err).WithDetail(dispatch.DetailClientID, clientID)
		}
		if len(rows) > 0 {
			r = rows[0]
		}
	} else if err := decodeJSON(trimmed, &r); err != nil {
		return nil, badPayload(pathClientLookup, err).WithDetail(dispatch.DetailClientID, clientID)
	}

	if len(r) == 0 {
		return nil, dispatch.ErrUpstreamBadResponse.
			WithMessage("crm returned no client for id %s", clientID).
			WithDetail(dispatch.DetailClientID, clientID).
			WithDetail(dispatch.DetailReason, dispatch.ReasonEmptyResult)
	}
	return r, nil
}
