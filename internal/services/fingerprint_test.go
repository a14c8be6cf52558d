package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/studydeck-backend/internal/data/repos"
	"github.com/yungbote/studydeck-backend/internal/data/repos/testutil"
	types "github.com/yungbote/studydeck-backend/internal/domain"
	"github.com/yungbote/studydeck-backend/internal/pkg/dbctx"
)

func TestFingerprintIsStableSHA256(t *testing.T) {
	got := Fingerprint([]byte("abc"))
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Fatalf("fingerprint: want=%s got=%s", want, got)
	}
}

func TestFingerprintResolve(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	set := repos.NewSet(db, testutil.Logger(t))
	svc := NewFingerprintService(testutil.Logger(t), set.Documents)
	dbc := dbctx.New(ctx)

	owner, other := uuid.New(), uuid.New()
	fp := Fingerprint([]byte("lecture notes"))

	res, err := svc.Resolve(dbc, fp, owner)
	if err != nil || res.Kind != ResolutionNew {
		t.Fatalf("empty index: want=new got=%v err=%v", res.Kind, err)
	}

	pending := testutil.SeedDocument(t, ctx, db, other, fp, types.DocumentPending)
	res, err = svc.Resolve(dbc, fp, owner)
	if err != nil || res.Kind != ResolutionNew {
		t.Fatalf("other owner pending: want=new got=%v err=%v", res.Kind, err)
	}

	if err := set.Documents.SetStatus(dbc, pending.ID, types.DocumentCompleted, ""); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	res, err = svc.Resolve(dbc, fp, owner)
	if err != nil || res.Kind != ResolutionCloneFrom || res.SharedContentID != pending.ID {
		t.Fatalf("other owner completed: want=clone/%s got=%v/%s err=%v", pending.ID, res.Kind, res.SharedContentID, err)
	}

	mine := testutil.SeedDocument(t, ctx, db, owner, fp, types.DocumentFailed)
	res, err = svc.Resolve(dbc, fp, owner)
	if err != nil || res.Kind != ResolutionReuse || res.DocumentID != mine.ID {
		t.Fatalf("own document: want=reuse/%s got=%v/%s err=%v", mine.ID, res.Kind, res.DocumentID, err)
	}
}
