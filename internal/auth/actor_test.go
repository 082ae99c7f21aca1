package auth

import (
	"context"
	"testing"

	"parts-service/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActorPermissions(t *testing.T) {
	tests := []struct {
		role   Role
		action Action
		want   bool
	}{
		{RoleAdmin, ActionPaymentReset, true},
		{RoleManager, ActionPaymentRecord, true},
		{RoleManager, ActionPaymentReset, false},
		{RoleManager, ActionStockTransfer, false},
		{RoleWarehouse, ActionStockTransfer, true},
		{RoleWarehouse, ActionOrderCreate, false},
		{RoleViewer, ActionOrderTransition, false},
		{Role("intern"), ActionOrderCreate, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.action), func(t *testing.T) {
			a := Actor{ID: 1, Role: tt.role}
			assert.Equal(t, tt.want, a.Can(tt.action))
		})
	}
}

func TestAuthorize(t *testing.T) {
	err := Actor{ID: 0, Role: RoleAdmin}.Authorize(ActionOrderCreate)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindPermissionDenied))

	err = Actor{ID: 7, Role: RoleViewer}.Authorize(ActionOrderDelete)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "viewer")

	assert.NoError(t, Actor{ID: 7, Role: RoleManager}.Authorize(ActionOrderDelete))
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithActor(context.Background(), Actor{ID: 3, Role: ParseRole(" Manager ")})
	a, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(3), a.ID)
	assert.Equal(t, RoleManager, a.Role)
}
