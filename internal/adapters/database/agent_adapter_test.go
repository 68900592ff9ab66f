package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/zatekoja/viewingscheduler/pkg/errors"
)

var agentColumnNames = []string{"id", "email", "first_name", "last_name", "is_active", "created_at", "updated_at"}

func TestAgentAdapter_GetByIDs(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewAgentAdapter(client)
	now := time.Now()

	mock.ExpectQuery(`FROM "agents" WHERE \("id" IN \('agent-1', 'agent-2'\)\)`).
		WillReturnRows(sqlmock.NewRows(agentColumnNames).
			AddRow("agent-1", "sarah@example.com", "Sarah", "Jones", true, now, now).
			AddRow("agent-2", "tom@example.com", "Tom", "Smith", false, now, now))

	agents, err := adapter.GetByIDs(context.Background(), []string{"agent-1", "agent-2"})
	require.NoError(t, err)

	require.Len(t, agents, 2)
	assert.Equal(t, "Sarah Jones", agents[0].FullName())
	assert.False(t, agents[1].IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAgentAdapter_GetByIDsEmptySkipsQuery(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewAgentAdapter(client)

	agents, err := adapter.GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, agents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAgentAdapter_ListActive(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewAgentAdapter(client)
	now := time.Now()

	mock.ExpectQuery(`FROM "agents" WHERE \("is_active" IS TRUE\) ORDER BY "first_name" ASC, "last_name" ASC`).
		WillReturnRows(sqlmock.NewRows(agentColumnNames).
			AddRow("agent-1", "sarah@example.com", "Sarah", "Jones", true, now, now))

	agents, err := adapter.ListActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, agents, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAgentAdapter_GetByIDNotFound(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewAgentAdapter(client)

	mock.ExpectQuery(`FROM "agents"`).WillReturnRows(sqlmock.NewRows(agentColumnNames))

	_, err := adapter.GetByID(context.Background(), "ghost")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAgentNotFound))
}
