package xcontext_test

import (
	"testing"

	"github.com/rafflelive/backend/internal/entity"
	"github.com/rafflelive/backend/pkg/testutil"
	"github.com/rafflelive/backend/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

func Test_DBTransaction_Commit(t *testing.T) {
	ctx := testutil.MockContext()

	txCtx := xcontext.WithDBTransaction(ctx)
	user := testutil.SampleUser(txCtx, nil)
	xcontext.WithCommitDBTransaction(txCtx)

	var count int64
	require.NoError(t, xcontext.DB(ctx).Model(&entity.User{}).
		Where("id=?", user.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func Test_DBTransaction_Rollback(t *testing.T) {
	ctx := testutil.MockContext()

	txCtx := xcontext.WithDBTransaction(ctx)
	user := testutil.SampleUser(txCtx, nil)
	xcontext.WithRollbackDBTransaction(txCtx)

	// The second rollback finds no open transaction and does nothing.
	xcontext.WithRollbackDBTransaction(txCtx)

	var count int64
	require.NoError(t, xcontext.DB(ctx).Model(&entity.User{}).
		Where("id=?", user.ID).Count(&count).Error)
	require.Zero(t, count)
}
