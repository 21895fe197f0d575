package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/netedge/internal/model"
)

func (t *Tx) LookupXRef(ctx context.Context, kind model.XRefKind, uuid string) (string, bool, error) {
	var deviceID string
	err := t.q.QueryRow(ctx,
		`SELECT device_id FROM edge_xrefs WHERE kind = $1 AND uuid = $2`, string(kind), uuid,
	).Scan(&deviceID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup %s xref %s: %w", kind, uuid, err)
	}
	return deviceID, true, nil
}

func (t *Tx) PutXRef(ctx context.Context, x model.EdgeXRef) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO edge_xrefs (kind, uuid, device_id) VALUES ($1, $2, $3)
		 ON CONFLICT (kind, uuid) DO UPDATE SET device_id = EXCLUDED.device_id`,
		string(x.Kind), x.UUID, x.DeviceID,
	)
	if err != nil {
		return fmt.Errorf("store %s xref %s: %w", x.Kind, x.UUID, err)
	}
	return nil
}

func (t *Tx) DeleteXRef(ctx context.Context, kind model.XRefKind, uuid string) error {
	_, err := t.q.Exec(ctx, `DELETE FROM edge_xrefs WHERE kind = $1 AND uuid = $2`, string(kind), uuid)
	if err != nil {
		return fmt.Errorf("delete %s xref %s: %w", kind, uuid, err)
	}
	return nil
}
