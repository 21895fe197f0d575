package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/netedge/internal/core"
	"github.com/edvin/netedge/internal/model"
	"github.com/edvin/netedge/internal/rulechain"
)

func sqlContains(fragment string) any {
	return mock.MatchedBy(func(sql string) bool { return strings.Contains(sql, fragment) })
}

func noRows(dest ...any) error { return pgx.ErrNoRows }

// ---------- Objects ----------

func TestGetIPObj_NotFound(t *testing.T) {
	db := &mockDB{}
	tx := NewTx(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, sqlContains("FROM ipobjs"), []any{"obj-1", "t1"}).Return(&mockRow{scanFunc: noRows})

	_, err := tx.GetIPObj(ctx, "t1", "obj-1")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestGetIPObj_ScansAddresses(t *testing.T) {
	db := &mockDB{}
	tx := NewTx(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, sqlContains("ipobj_addresses"), []any{"obj-1", "t1"}).Return(&mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "obj-1"
		*(dest[1].(*string)) = "t1"
		*(dest[2].(*string)) = "web"
		*(dest[4].(*[]string)) = []string{"10.0.0.1", "10.0.0.2"}
		return nil
	}})

	o, err := tx.GetIPObj(ctx, "t1", "obj-1")
	require.NoError(t, err)
	assert.Equal(t, "web", o.Name)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, o.Value)
}

func TestListIPObjs_FiltersAndPages(t *testing.T) {
	db := &mockDB{}
	tx := NewTx(db)
	ctx := context.Background()

	scan := func(id string) func(dest ...any) error {
		return func(dest ...any) error {
			*(dest[0].(*string)) = id
			return nil
		}
	}
	db.On("Query", ctx,
		mock.MatchedBy(func(sql string) bool {
			return strings.Contains(sql, "tenant_id = $1") && strings.Contains(sql, "name = $2") &&
				strings.Contains(sql, "id > $3") && strings.HasSuffix(sql, "ORDER BY id LIMIT $4")
		}),
		[]any{"t1", "web", "c0", 3},
	).Return(newMockRows(scan("a"), scan("b"), scan("c")), nil)

	objs, hasMore, err := tx.ListIPObjs(ctx, "t1", core.ListFilter{Name: "web", Cursor: "c0", Limit: 2})
	require.NoError(t, err)
	assert.True(t, hasMore)
	require.Len(t, objs, 2)
	assert.Equal(t, "b", objs[1].ID)
	db.AssertExpectations(t)
}

func TestListZones_DefaultLimit(t *testing.T) {
	db := &mockDB{}
	tx := NewTx(db)
	ctx := context.Background()

	db.On("Query", ctx, mock.AnythingOfType("string"), []any{"t1", defaultListLimit + 1}).Return(newEmptyMockRows(), nil)

	zones, hasMore, err := tx.ListZones(ctx, "t1", core.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, zones)
	assert.False(t, hasMore)
}

func TestDeleteServiceObj_NotFound(t *testing.T) {
	db := &mockDB{}
	tx := NewTx(db)
	ctx := context.Background()

	db.On("Exec", ctx, sqlContains("DELETE FROM serviceobjs"), []any{"s1", "t2"}).Return(pgconn.NewCommandTag("DELETE 0"), nil)

	assert.ErrorIs(t, tx.DeleteServiceObj(ctx, "t2", "s1"), core.ErrNotFound)
}

func TestInsertServiceObj_NullSourcePorts(t *testing.T) {
	db := &mockDB{}
	tx := NewTx(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, sqlContains("INSERT INTO serviceobjs"), mock.MatchedBy(func(args []any) bool {
		return args[5] == `[443]` && args[6] == nil
	})).Return(&mockRow{scanFunc: func(dest ...any) error { return nil }})

	err := tx.InsertServiceObj(ctx, &model.ServiceObj{ID: "s1", TenantID: "t1", Protocol: "tcp", Values: []byte(`[443]`)})
	require.NoError(t, err)
	db.AssertExpectations(t)
}

// ---------- Rule chain ----------

func TestRuleChainTail(t *testing.T) {
	ctx := context.Background()
	node := func(id string) func(dest ...any) error {
		return func(dest ...any) error {
			*(dest[0].(*string)) = id
			*(dest[1].(*string)) = "t1"
			return nil
		}
	}

	t.Run("empty", func(t *testing.T) {
		db := &mockDB{}
		db.On("Query", ctx, sqlContains("next_id IS NULL"), []any{"t1"}).Return(newEmptyMockRows(), nil)
		tail, err := NewTx(db).RuleChain("t1").Tail(ctx)
		require.NoError(t, err)
		assert.Nil(t, tail)
	})

	t.Run("single", func(t *testing.T) {
		db := &mockDB{}
		db.On("Query", ctx, sqlContains("next_id IS NULL"), []any{"t1"}).Return(newMockRows(node("r9")), nil)
		tail, err := NewTx(db).RuleChain("t1").Tail(ctx)
		require.NoError(t, err)
		assert.Equal(t, "r9", tail.ID)
	})

	t.Run("two tails", func(t *testing.T) {
		db := &mockDB{}
		db.On("Query", ctx, sqlContains("next_id IS NULL"), []any{"t1"}).Return(newMockRows(node("r1"), node("r2")), nil)
		_, err := NewTx(db).RuleChain("t1").Tail(ctx)
		assert.True(t, rulechain.IsCorruption(err))
	})
}

func TestRuleChainNode_NotFound(t *testing.T) {
	db := &mockDB{}
	ctx := context.Background()
	db.On("QueryRow", ctx, sqlContains("FROM rule_link_nodes"), []any{"r1", "t1"}).Return(&mockRow{scanFunc: noRows})

	_, err := NewTx(db).RuleChain("t1").Node(ctx, "r1")
	assert.ErrorIs(t, err, rulechain.ErrNodeNotFound)
}

func TestRuleChainSetLinks_ScopedToTenant(t *testing.T) {
	db := &mockDB{}
	ctx := context.Background()
	next := "r2"
	db.On("Exec", ctx, sqlContains("UPDATE rule_link_nodes"), []any{"r1", "t2", (*string)(nil), &next}).
		Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	err := NewTx(db).RuleChain("t2").SetLinks(ctx, "r1", nil, &next)
	assert.ErrorIs(t, err, rulechain.ErrNodeNotFound)
}

func TestLockRuleChain(t *testing.T) {
	db := &mockDB{}
	ctx := context.Background()
	db.On("Exec", ctx, sqlContains("pg_advisory_xact_lock"), []any{"rule-chain:t1"}).Return(pgconn.NewCommandTag("SELECT 1"), nil)

	require.NoError(t, NewTx(db).LockRuleChain(ctx, "t1"))
	db.AssertExpectations(t)
}

// ---------- Rules ----------

func TestGetRule_LoadsChildren(t *testing.T) {
	db := &mockDB{}
	tx := NewTx(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, sqlContains("FROM rules WHERE id = $1"), []any{"r1", "t1"}).Return(&mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "r1"
		*(dest[1].(*string)) = "t1"
		*(dest[4].(*bool)) = true
		return nil
	}})
	db.On("Query", ctx, sqlContains("FROM rule_addresses"), []any{"r1"}).Return(newMockRows(
		func(dest ...any) error {
			*(dest[0].(*string)) = "r1"
			*(dest[1].(*string)) = model.DirectionSource
			*(dest[2].(*string)) = "10.0.0.0/24"
			return nil
		},
		func(dest ...any) error {
			*(dest[0].(*string)) = "r1"
			*(dest[1].(*string)) = model.DirectionDestination
			*(dest[2].(*string)) = "192.168.0.1"
			return nil
		},
	), nil)
	db.On("Query", ctx, sqlContains("FROM rule_ipobj_bindings"), []any{"r1"}).Return(newEmptyMockRows(), nil)
	db.On("Query", ctx, sqlContains("FROM rule_service_configs"), []any{"r1"}).Return(newMockRows(
		func(dest ...any) error {
			*(dest[0].(*string)) = "r1"
			*(dest[1].(*string)) = "tcp"
			*(dest[2].(*[]byte)) = []byte(`[22]`)
			return nil
		},
	), nil)
	db.On("Query", ctx, sqlContains("FROM rule_serviceobj_bindings"), []any{"r1"}).Return(newEmptyMockRows(), nil)

	r, err := tx.GetRule(ctx, "t1", "r1")
	require.NoError(t, err)
	assert.True(t, r.Accept)
	assert.Equal(t, []string{"10.0.0.0/24"}, r.Source.Addresses)
	assert.Equal(t, []string{"192.168.0.1"}, r.Destination.Addresses)
	require.Len(t, r.Service.Services, 1)
	assert.Equal(t, "tcp", r.Service.Services[0].Protocol)
	assert.JSONEq(t, `[22]`, string(r.Service.Services[0].Values))
}

func TestDeleteRule_OtherTenant(t *testing.T) {
	db := &mockDB{}
	ctx := context.Background()
	db.On("Exec", ctx, sqlContains("DELETE FROM rules"), []any{"r1", "t2"}).Return(pgconn.NewCommandTag("DELETE 0"), nil)

	assert.ErrorIs(t, NewTx(db).DeleteRule(ctx, "t2", "r1"), core.ErrNotFound)
}

// ---------- XRefs ----------

func TestLookupXRef(t *testing.T) {
	db := &mockDB{}
	tx := NewTx(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"rule", "r1"}).Return(&mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "133"
		return nil
	}})
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"rule", "r2"}).Return(&mockRow{scanFunc: noRows})
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"rule", "r3"}).Return(&mockRow{scanFunc: func(dest ...any) error {
		return errors.New("conn reset")
	}})

	id, found, err := tx.LookupXRef(ctx, model.XRefRule, "r1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "133", id)

	_, found, err = tx.LookupXRef(ctx, model.XRefRule, "r2")
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = tx.LookupXRef(ctx, model.XRefRule, "r3")
	assert.Error(t, err)
}

// ---------- VPN ----------

func TestGetSite_DecodesSubnetPairs(t *testing.T) {
	db := &mockDB{}
	tx := NewTx(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, sqlContains("FROM sites"), []any{"s1", "t1"}).Return(&mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*string)) = "s1"
		*(dest[11].(*string)) = "10.0.0.0/24,10.0.1.0/24-172.16.0.0/24;10.2.0.0/24-172.17.0.0/24"
		return nil
	}})

	s, err := tx.GetSite(ctx, "t1", "s1")
	require.NoError(t, err)
	assert.Equal(t, []model.SubnetPair{
		{LocalSubnets: "10.0.0.0/24,10.0.1.0/24", PeerSubnets: "172.16.0.0/24"},
		{LocalSubnets: "10.2.0.0/24", PeerSubnets: "172.17.0.0/24"},
	}, s.PriNetworks)
}

func TestInsertSite_EncodesSubnetPairs(t *testing.T) {
	db := &mockDB{}
	tx := NewTx(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, sqlContains("INSERT INTO sites"), mock.MatchedBy(func(args []any) bool {
		return args[11] == "10.0.0.0/24-172.16.0.0/24"
	})).Return(&mockRow{scanFunc: func(dest ...any) error { return nil }})

	err := tx.InsertSite(ctx, &model.Site{ID: "s1", TenantID: "t1", PriNetworks: []model.SubnetPair{
		{LocalSubnets: "10.0.0.0/24", PeerSubnets: "172.16.0.0/24"},
	}})
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestSitesUsingPolicy(t *testing.T) {
	db := &mockDB{}
	tx := NewTx(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, sqlContains("WHERE isakmp_policy_id = $1"), []any{"p1"}).Return(&mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*int)) = 2
		return nil
	}})

	n, err := tx.SitesUsingPolicy(ctx, core.KindIsakmpPolicy, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = tx.SitesUsingPolicy(ctx, core.KindSite, "p1")
	assert.Error(t, err)
}

func TestSetVPNStatus(t *testing.T) {
	db := &mockDB{}
	tx := NewTx(db)
	ctx := context.Background()
	msg := "push failed"

	db.On("Exec", ctx, sqlContains("UPDATE trust_profiles"), []any{"tp1", model.StatusError, &msg}).Return(pgconn.NewCommandTag("UPDATE 1"), nil)
	db.On("Exec", ctx, sqlContains("UPDATE sites"), []any{"gone", model.StatusActive, (*string)(nil)}).Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	require.NoError(t, tx.SetVPNStatus(ctx, core.KindTrustProfile, "tp1", model.StatusError, &msg))
	assert.ErrorIs(t, tx.SetVPNStatus(ctx, core.KindSite, "gone", model.StatusActive, nil), core.ErrNotFound)
	assert.Error(t, tx.SetVPNStatus(ctx, core.VPNKind("bogus"), "x", model.StatusActive, nil))
}

func TestGetVPNStatus_OtherTenant(t *testing.T) {
	db := &mockDB{}
	ctx := context.Background()
	db.On("QueryRow", ctx, sqlContains("SELECT status FROM ipsec_policies"), []any{"p1", "t2"}).Return(&mockRow{scanFunc: noRows})

	_, err := NewTx(db).GetVPNStatus(ctx, core.KindIPSecPolicy, "t2", "p1")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
