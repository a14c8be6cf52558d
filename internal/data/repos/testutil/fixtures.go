package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/studydeck-backend/internal/domain"
)

func SeedDocument(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, fingerprint string, status types.DocumentStatus) *types.Document {
	tb.Helper()
	doc := &types.Document{
		OwnerID:     ownerID,
		Title:       "notes",
		Fingerprint: fingerprint,
		PageCount:   8,
		Status:      status,
	}
	if err := tx.WithContext(ctx).Create(doc).Error; err != nil {
		tb.Fatalf("seed document: %v", err)
	}
	return doc
}

func SeedTopic(tb testing.TB, ctx context.Context, tx *gorm.DB, documentID uuid.UUID, position int) *types.Topic {
	tb.Helper()
	topic := &types.Topic{DocumentID: documentID, Title: "topic", Position: position}
	if err := tx.WithContext(ctx).Create(topic).Error; err != nil {
		tb.Fatalf("seed topic: %v", err)
	}
	return topic
}

func SeedAccount(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, balance int) *types.CreditAccount {
	tb.Helper()
	acct := &types.CreditAccount{UserID: userID, Balance: balance, LifetimeEarned: balance}
	if err := tx.WithContext(ctx).Create(acct).Error; err != nil {
		tb.Fatalf("seed account: %v", err)
	}
	return acct
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }
