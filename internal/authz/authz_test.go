package authz

import (
	"context"
	"errors"
	"testing"
)

type fakeLog struct {
	creator    string
	exists     bool
	creatorErr error
	existsErr  error
}

func (f *fakeLog) Creator(context.Context, string) (string, error) {
	return f.creator, f.creatorErr
}

func (f *fakeLog) Exists(context.Context, string) (bool, error) {
	return f.exists, f.existsErr
}

func TestForLog(t *testing.T) {
	boom := errors.New("store down")

	cases := []struct {
		name   string
		log    *fakeLog
		userID string
		want   Decision
	}{
		{
			name:   "invalid user",
			log:    &fakeLog{creator: "alice", exists: true},
			userID: "",
			want:   Decision{OK: false, Reason: ReasonInvalidUser},
		},
		{
			name:   "owner",
			log:    &fakeLog{creator: "alice", exists: true},
			userID: "alice",
			want:   Decision{OK: true, Reason: ReasonOwner},
		},
		{
			name:   "participant",
			log:    &fakeLog{creator: "alice", exists: true},
			userID: "bob",
			want:   Decision{OK: true, Reason: ReasonParticipant},
		},
		{
			name:   "legacy log without creator",
			log:    &fakeLog{creator: "", exists: true},
			userID: "bob",
			want:   Decision{OK: true, Reason: ReasonParticipant},
		},
		{
			name:   "missing log",
			log:    &fakeLog{creator: "", exists: false},
			userID: "bob",
			want:   Decision{OK: false, Reason: ReasonNotFound},
		},
		{
			name:   "creator lookup error denies",
			log:    &fakeLog{creatorErr: boom},
			userID: "bob",
			want:   Decision{OK: false, Reason: ReasonDenied},
		},
		{
			name:   "existence check error denies",
			log:    &fakeLog{creator: "", existsErr: boom},
			userID: "bob",
			want:   Decision{OK: false, Reason: ReasonDenied},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ForLog(context.Background(), c.log, c.userID, "id1")
			if got != c.want {
				t.Errorf("ForLog = %+v, want %+v", got, c.want)
			}
		})
	}
}
