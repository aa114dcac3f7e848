package api

import (
	"context"
	"fmt"

	"github.com/wildcastradio/radiolink/internal/model"
)

func broadcastPath(id int64) string {
	return fmt.Sprintf("/api/broadcasts/%d", id)
}

// GetBroadcast fetches the authoritative state of a broadcast.
func (c *Client) GetBroadcast(ctx context.Context, id int64) (*model.Broadcast, error) {
	var b model.Broadcast
	if err := c.get(ctx, broadcastPath(id), &b); err != nil {
		return nil, fmt.Errorf("get broadcast %d: %w", id, err)
	}
	return &b, nil
}

// GetCurrentDJ fetches the DJ currently on air for a broadcast. The server
// answers 404 when nobody is on air, which surfaces as a NotFound error.
func (c *Client) GetCurrentDJ(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	if err := c.get(ctx, broadcastPath(id)+"/current-dj", &u); err != nil {
		return nil, fmt.Errorf("get current dj %d: %w", id, err)
	}
	return &u, nil
}

// InitiateHandover asks the server to pass the broadcast to another DJ. The
// response reflects the handover record, not necessarily the broadcast's
// visible state; confirm with a reconciliation read.
func (c *Client) InitiateHandover(ctx context.Context, id int64, req model.HandoverRequest) (*model.Handover, error) {
	var h model.Handover
	if err := c.post(ctx, broadcastPath(id)+"/handover", req, &h); err != nil {
		return nil, fmt.Errorf("initiate handover %d: %w", id, err)
	}
	return &h, nil
}

// GetHandoverHistory lists past handovers for a broadcast, oldest first as
// returned by the server.
func (c *Client) GetHandoverHistory(ctx context.Context, id int64) ([]model.Handover, error) {
	var hs []model.Handover
	if err := c.get(ctx, broadcastPath(id)+"/handovers", &hs); err != nil {
		return nil, fmt.Errorf("get handover history %d: %w", id, err)
	}
	return hs, nil
}
