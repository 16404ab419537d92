package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	users    map[string]*user
	tasks    map[int64]*task
	comments map[int64]*comment
	nextID   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[string]*user),
		tasks:    make(map[int64]*task),
		comments: make(map[int64]*comment),
		nextID:   100,
	}
}

func (f *fakeStore) getUserByEmail(email string) (*user, error) {
	return f.users[email], nil
}

func (f *fakeStore) insertUser(u *user) error {
	f.nextID++
	u.ID = f.nextID
	f.users[u.Email] = u
	return nil
}

func (f *fakeStore) getTaskByID(id int64) (*task, error) {
	return f.tasks[id], nil
}

func (f *fakeStore) getCommentByID(id int64) (*comment, error) {
	return f.comments[id], nil
}

func (f *fakeStore) addUser(id int64, email string) *user {
	u := &user{ID: id, Email: email, FullName: "Test User"}
	f.users[email] = u
	return u
}

func int64p(v int64) *int64 {
	return &v
}

// fixture: task 1 authored by user 10, assigned to user 20.
func authzFixture(t *testing.T) (*authorizer, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	store.addUser(10, "author@example.com")
	store.addUser(20, "assignee@example.com")
	store.addUser(30, "other@example.com")
	store.tasks[1] = &task{
		ID:          1,
		Title:       "Prepare release",
		Description: "Cut the 2.4 release branch",
		Status:      statusPending,
		Priority:    priorityHigh,
		AuthorID:    10,
		AssigneeID:  int64p(20),
	}
	store.comments[7] = &comment{ID: 7, Text: "on it", AuthorID: 20, TaskID: 1}
	return &authorizer{store: store}, store
}

func identityFor(email string) *identity {
	return &identity{Email: email, GivenName: "Test", FamilyName: "User"}
}

// unchanged returns a proposed state identical to the stored task 1.
func unchanged() *taskRequest {
	return &taskRequest{
		Title:       "Prepare release",
		Description: "Cut the 2.4 release branch",
		Status:      string(statusPending),
		Priority:    string(priorityHigh),
		AssigneeID:  int64p(20),
	}
}

func TestAuthorizeUpdateAuthorChangesAnything(t *testing.T) {
	a, _ := authzFixture(t)

	proposed := unchanged()
	proposed.Title = "Ship release"
	proposed.Description = "new plan"
	proposed.Status = string(statusCompleted)
	proposed.Priority = string(priorityLow)
	proposed.AssigneeID = int64p(30)

	err := a.authorizeUpdate(identityFor("author@example.com"), entityTask, 1, proposed)
	require.NoError(t, err)
}

func TestAuthorizeUpdateAssigneeStatusOnly(t *testing.T) {
	a, _ := authzFixture(t)
	ident := identityFor("assignee@example.com")

	proposed := unchanged()
	proposed.Status = string(statusInProgress)
	require.NoError(t, a.authorizeUpdate(ident, entityTask, 1, proposed))

	// Each restricted field flips the decision on its own.
	perturbations := map[string]func(r *taskRequest){
		"title":       func(r *taskRequest) { r.Title = "Renamed" },
		"description": func(r *taskRequest) { r.Description = "rewritten" },
		"priority":    func(r *taskRequest) { r.Priority = string(priorityLow) },
		"assignee_id": func(r *taskRequest) { r.AssigneeID = int64p(30) },
	}
	for field, perturb := range perturbations {
		proposed := unchanged()
		perturb(proposed)
		err := a.authorizeUpdate(ident, entityTask, 1, proposed)
		assert.ErrorIs(t, err, errFieldRestricted, "changing %s must be denied", field)
	}
}

func TestAuthorizeUpdateAssigneeClearingAssigneeDenied(t *testing.T) {
	a, _ := authzFixture(t)

	proposed := unchanged()
	proposed.AssigneeID = nil
	err := a.authorizeUpdate(identityFor("assignee@example.com"), entityTask, 1, proposed)
	assert.ErrorIs(t, err, errFieldRestricted)
}

func TestAuthorizeUpdateUnrelatedUserDenied(t *testing.T) {
	a, _ := authzFixture(t)

	err := a.authorizeUpdate(identityFor("other@example.com"), entityTask, 1, unchanged())
	require.ErrorIs(t, err, errPermissionDenied)
	assert.NotErrorIs(t, err, errFieldRestricted)
}

func TestAuthorizeUpdateNoAssignee(t *testing.T) {
	a, store := authzFixture(t)
	store.tasks[1].AssigneeID = nil

	// Without an assignee only the author has update rights.
	err := a.authorizeUpdate(identityFor("assignee@example.com"), entityTask, 1, unchanged())
	require.ErrorIs(t, err, errPermissionDenied)

	require.NoError(t, a.authorizeUpdate(identityFor("author@example.com"), entityTask, 1, unchanged()))
}

func TestAuthorizeDeleteTask(t *testing.T) {
	a, _ := authzFixture(t)

	require.NoError(t, a.authorizeDelete(identityFor("author@example.com"), entityTask, 1))

	// The assignee may update status but never delete.
	err := a.authorizeDelete(identityFor("assignee@example.com"), entityTask, 1)
	assert.ErrorIs(t, err, errPermissionDenied)

	err = a.authorizeDelete(identityFor("other@example.com"), entityTask, 1)
	assert.ErrorIs(t, err, errPermissionDenied)
}

func TestAuthorizeComment(t *testing.T) {
	a, _ := authzFixture(t)

	// comment 7 authored by user 20
	require.NoError(t, a.authorizeUpdate(identityFor("assignee@example.com"), entityComment, 7, nil))
	require.NoError(t, a.authorizeDelete(identityFor("assignee@example.com"), entityComment, 7))

	err := a.authorizeUpdate(identityFor("author@example.com"), entityComment, 7, nil)
	assert.ErrorIs(t, err, errPermissionDenied)
	err = a.authorizeDelete(identityFor("other@example.com"), entityComment, 7)
	assert.ErrorIs(t, err, errPermissionDenied)
}

func TestAuthorizeIdentityMissing(t *testing.T) {
	a, _ := authzFixture(t)

	err := a.authorizeUpdate(nil, entityTask, 1, unchanged())
	assert.ErrorIs(t, err, errIdentityMissing)

	err = a.authorizeDelete(nil, entityComment, 7)
	assert.ErrorIs(t, err, errIdentityMissing)
}

func TestAuthorizeEntityNotFound(t *testing.T) {
	a, _ := authzFixture(t)
	ident := identityFor("author@example.com")

	err := a.authorizeUpdate(ident, entityTask, 999, unchanged())
	assert.ErrorIs(t, err, errEntityNotFound)

	err = a.authorizeDelete(ident, entityComment, 999)
	assert.ErrorIs(t, err, errEntityNotFound)
}

func TestCurrentUserCreatedOnFirstSight(t *testing.T) {
	a, store := authzFixture(t)

	ident := &identity{Email: "new@example.com", GivenName: "Grace", FamilyName: "Hopper"}
	u, err := a.currentUser(ident)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "new@example.com", u.Email)
	assert.Equal(t, "Grace Hopper", u.FullName)
	assert.NotZero(t, u.ID)

	// Second sight resolves to the same record, no duplicate creation.
	again, err := a.currentUser(ident)
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Len(t, store.users, 4)
}

// Scenario: assignee moves status forward, gets denied on priority,
// while the author may lower priority freely.
func TestAuthorizeScenario(t *testing.T) {
	a, _ := authzFixture(t)

	proposed := unchanged()
	proposed.Status = string(statusInProgress)
	require.NoError(t, a.authorizeUpdate(identityFor("assignee@example.com"), entityTask, 1, proposed))

	proposed = unchanged()
	proposed.Priority = string(priorityLow)
	err := a.authorizeUpdate(identityFor("assignee@example.com"), entityTask, 1, proposed)
	require.ErrorIs(t, err, errFieldRestricted)

	require.NoError(t, a.authorizeUpdate(identityFor("author@example.com"), entityTask, 1, proposed))
}
