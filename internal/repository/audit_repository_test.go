package repository

import (
	"context"
	"testing"
	"time"

	"github.com/sjperalta/finops-api/internal/models"
	"github.com/sjperalta/finops-api/pkg/changes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRepository_List_BusinessUnitFilter(t *testing.T) {
	db := newSQLiteGorm(t)
	require.NoError(t, db.AutoMigrate(&models.BusinessUnit{}, &models.User{}, &models.AuditLog{}))
	repo := NewAuditRepository(db)
	ctx := context.Background()

	hq, branch := uint(1), uint(2)
	base := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	entries := []*models.AuditLog{
		{Entity: "transactions", RecordID: "1", Action: models.AuditActionCreate, UserID: 5, BusinessUnitID: &hq,
			NewValues: changes.Snapshot{"transaction_code": "HQ_T0124_001"}, CreatedAt: base},
		{Entity: "transactions", RecordID: "2", Action: models.AuditActionCreate, UserID: 7, BusinessUnitID: &branch,
			NewValues: changes.Snapshot{"transaction_code": "BR_T0124_001"}, CreatedAt: base.Add(time.Minute)},
		{Entity: "sequence_counters", RecordID: "1_T_0124", Action: models.AuditActionUpdate, UserID: 2,
			CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		require.NoError(t, repo.Create(ctx, e))
	}

	logs, total, err := repo.List(ctx, &AuditQuery{ListQuery: NewListQuery(), BusinessUnitID: hq})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, logs, 1)
	assert.Equal(t, "1", logs[0].RecordID)
	require.NotNil(t, logs[0].BusinessUnitID)
	assert.Equal(t, hq, *logs[0].BusinessUnitID)

	logs, total, err = repo.List(ctx, &AuditQuery{ListQuery: NewListQuery()})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, logs, 3)
	assert.Equal(t, "sequence_counters", logs[0].Entity)
	assert.Nil(t, logs[0].BusinessUnitID)
}
