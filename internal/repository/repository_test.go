package repository

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/user/gunvortv/internal/model"
	"gorm.io/gorm"
)

func newTestRepos(t *testing.T) *Repositories {
	t.Helper()
	db, err := InitDB("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewRepositories(db)
}

func createUser(t *testing.T, repos *Repositories, email string) *model.User {
	t.Helper()
	u, err := repos.User.Create(email, "secret123", "Test User")
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	return u
}

func TestInitDBRejectsUnknownDriver(t *testing.T) {
	if _, err := InitDB("mysql", "x"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestUserCreateAndPassword(t *testing.T) {
	repos := newTestRepos(t)
	u := createUser(t, repos, "  Ada@Example.com ")

	if u.Email != "ada@example.com" {
		t.Errorf("email not normalized: %q", u.Email)
	}
	if u.Provider != ProviderPassword {
		t.Errorf("provider = %q", u.Provider)
	}

	found, err := repos.User.FindByEmail("ADA@example.com")
	if err != nil || found == nil {
		t.Fatalf("FindByEmail = %v, %v", found, err)
	}
	if !repos.User.CheckPassword(found, "secret123") {
		t.Error("correct password rejected")
	}
	if repos.User.CheckPassword(found, "wrong") {
		t.Error("wrong password accepted")
	}

	if _, err := repos.User.Create("ada@example.com", "other", ""); !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("duplicate create err = %v, want ErrDuplicateEmail", err)
	}

	missing, err := repos.User.FindByID("nope")
	if err != nil || missing != nil {
		t.Errorf("FindByID(unknown) = %v, %v; want nil, nil", missing, err)
	}
}

func TestUserUpdatePassword(t *testing.T) {
	repos := newTestRepos(t)
	u := createUser(t, repos, "bob@example.com")

	if err := repos.User.UpdatePassword(u.ID, "newpass456"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}
	got, _ := repos.User.FindByID(u.ID)
	if !repos.User.CheckPassword(got, "newpass456") || repos.User.CheckPassword(got, "secret123") {
		t.Error("password not replaced")
	}
}

func TestUpsertFederated(t *testing.T) {
	repos := newTestRepos(t)

	created, err := repos.User.UpsertFederated(ProviderGoogle, "g@example.com", "Gee", "https://img/g.png")
	if err != nil {
		t.Fatalf("UpsertFederated: %v", err)
	}
	if created.Provider != ProviderGoogle || created.PasswordHash != "" {
		t.Errorf("federated user = %+v", created)
	}
	if repos.User.CheckPassword(created, "") {
		t.Error("passwordless account must not accept an empty password")
	}

	again, err := repos.User.UpsertFederated(ProviderGoogle, "G@example.com", "Other", "")
	if err != nil {
		t.Fatalf("second UpsertFederated: %v", err)
	}
	if again.ID != created.ID || again.DisplayName != "Gee" {
		t.Errorf("existing account not reused: %+v", again)
	}

	// existing password account picks up a missing photo
	pw := createUser(t, repos, "p@example.com")
	linked, err := repos.User.UpsertFederated(ProviderGoogle, "p@example.com", "P", "https://img/p.png")
	if err != nil {
		t.Fatal(err)
	}
	if linked.ID != pw.ID || linked.PhotoURL != "https://img/p.png" || linked.DisplayName != "Test User" {
		t.Errorf("linked = %+v", linked)
	}
}

func TestWishlistAddIsIdempotent(t *testing.T) {
	repos := newTestRepos(t)
	u := createUser(t, repos, "w@example.com")

	first, created, err := repos.Wishlist.Add(u.ID, "m1")
	if err != nil || !created {
		t.Fatalf("Add = %v, %v, %v", first, created, err)
	}
	second, created, err := repos.Wishlist.Add(u.ID, "m1")
	if err != nil {
		t.Fatal(err)
	}
	if created || second.ID != first.ID {
		t.Errorf("duplicate add created a new entry: %+v", second)
	}

	items, err := repos.Wishlist.ListByUser(u.ID)
	if err != nil || len(items) != 1 {
		t.Fatalf("ListByUser = %d items, %v", len(items), err)
	}

	in, _ := repos.Wishlist.IsInWishlist(u.ID, "m1")
	if !in {
		t.Error("IsInWishlist = false")
	}
}

// rivalWishlistAdds makes every wishlist insert collide with a row written
// by a concurrent add inside the same transaction; with drop the rival row
// is deleted again before commit
func rivalWishlistAdds(t *testing.T, repos *Repositories, drop bool) {
	t.Helper()
	rival := func(db *gorm.DB) *gorm.DB { return db.Session(&gorm.Session{NewDB: true}) }
	create := repos.DB.Callback().Create()

	err := create.After("gorm:begin_transaction").Before("gorm:create").Register("test:rival_add", func(db *gorm.DB) {
		if item, ok := db.Statement.Dest.(*model.WishlistItem); ok {
			rival(db).Exec("INSERT INTO wishlist_items (id, user_id, content_id, added_at) VALUES (?, ?, ?, ?)",
				"rival-"+item.ID, item.UserID, item.ContentID, time.Now())
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if !drop {
		return
	}
	err = create.After("gorm:create").Before("gorm:commit_or_rollback_transaction").Register("test:rival_remove", func(db *gorm.DB) {
		if item, ok := db.Statement.Dest.(*model.WishlistItem); ok {
			rival(db).Exec("DELETE FROM wishlist_items WHERE id = ?", "rival-"+item.ID)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestWishlistAddLosesRace(t *testing.T) {
	repos := newTestRepos(t)
	u := createUser(t, repos, "w@example.com")
	rivalWishlistAdds(t, repos, false)

	item, created, err := repos.Wishlist.Add(u.ID, "m1")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if created || item == nil || !strings.HasPrefix(item.ID, "rival-") {
		t.Fatalf("Add = %+v, created %v; want the rival entry", item, created)
	}
}

func TestWishlistAddRivalRemoved(t *testing.T) {
	repos := newTestRepos(t)
	u := createUser(t, repos, "w@example.com")
	rivalWishlistAdds(t, repos, true)

	item, created, err := repos.Wishlist.Add(u.ID, "m1")
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("err = %v, want ErrRecordNotFound", err)
	}
	if item != nil || created {
		t.Errorf("Add = %+v, %v; want nil entry", item, created)
	}
	if items, _ := repos.Wishlist.ListByUser(u.ID); len(items) != 0 {
		t.Errorf("wishlist = %d items", len(items))
	}
}

func TestWishlistOrderAndOwnership(t *testing.T) {
	repos := newTestRepos(t)
	owner := createUser(t, repos, "o@example.com")
	other := createUser(t, repos, "x@example.com")

	a, _, _ := repos.Wishlist.Add(owner.ID, "m1")
	time.Sleep(5 * time.Millisecond)
	b, _, _ := repos.Wishlist.Add(owner.ID, "m2")

	items, _ := repos.Wishlist.ListByUser(owner.ID)
	if len(items) != 2 || items[0].ID != b.ID || items[1].ID != a.ID {
		t.Fatalf("want newest first, got %+v", items)
	}

	if err := repos.Wishlist.Remove(other.ID, a.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("removing another user's entry: err = %v", err)
	}
	if err := repos.Wishlist.Remove(owner.ID, a.ID); err != nil {
		t.Errorf("Remove: %v", err)
	}
	if err := repos.Wishlist.RemoveByContent(owner.ID, "m2"); err != nil {
		t.Errorf("RemoveByContent: %v", err)
	}
	items, _ = repos.Wishlist.ListByUser(owner.ID)
	if len(items) != 0 {
		t.Errorf("entries left: %d", len(items))
	}
}

func TestReviewOptimisticUpdate(t *testing.T) {
	repos := newTestRepos(t)
	u := createUser(t, repos, "r@example.com")

	rv := &model.Review{UserID: u.ID, ContentID: "m1", Rating: 4, Text: "good"}
	if err := repos.Review.Create(rv); err != nil {
		t.Fatal(err)
	}
	if rv.ID == "" || rv.Version != 1 {
		t.Fatalf("created review = %+v", rv)
	}

	// two editors read version 1
	a, _ := repos.Review.FindByID(rv.ID)
	b, _ := repos.Review.FindByID(rv.ID)

	a.Text = "great"
	if err := repos.Review.Update(a); err != nil {
		t.Fatalf("first update: %v", err)
	}
	if a.Version != 2 {
		t.Errorf("version after update = %d", a.Version)
	}

	b.Text = "meh"
	if err := repos.Review.Update(b); !errors.Is(err, ErrEditConflict) {
		t.Fatalf("stale update err = %v, want ErrEditConflict", err)
	}

	got, _ := repos.Review.FindByID(rv.ID)
	if got.Text != "great" || got.Version != 2 {
		t.Errorf("stored review = %+v", got)
	}
}

func TestReviewDeleteAndAuthorRefresh(t *testing.T) {
	repos := newTestRepos(t)
	u := createUser(t, repos, "d@example.com")
	other := createUser(t, repos, "e@example.com")

	first := &model.Review{UserID: u.ID, UserDisplayName: "Old", ContentID: "m1", Rating: 3}
	second := &model.Review{UserID: u.ID, UserDisplayName: "Old", ContentID: "m2", Rating: 5}
	repos.Review.Create(first)
	time.Sleep(5 * time.Millisecond)
	repos.Review.Create(second)

	if err := repos.Review.RefreshAuthor(u.ID, "New", "https://img/new.png"); err != nil {
		t.Fatal(err)
	}
	mine, _ := repos.Review.ListByUser(u.ID)
	if len(mine) != 2 || mine[0].ID != second.ID {
		t.Fatalf("ListByUser order wrong: %+v", mine)
	}
	for _, r := range mine {
		if r.UserDisplayName != "New" || r.UserAvatarURL != "https://img/new.png" {
			t.Errorf("author not refreshed: %+v", r)
		}
	}

	if err := repos.Review.Delete(first.ID, other.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("delete by non-owner err = %v", err)
	}
	if err := repos.Review.Delete(first.ID, u.ID); err != nil {
		t.Errorf("Delete: %v", err)
	}
	left, _ := repos.Review.ListByContent("m1")
	if len(left) != 0 {
		t.Errorf("review still listed for m1")
	}
}

func TestPasswordResetConsumeOnce(t *testing.T) {
	repos := newTestRepos(t)
	u := createUser(t, repos, "reset@example.com")

	if err := repos.PasswordReset.Create(u.ID, "hash-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	userID, err := repos.PasswordReset.Consume("hash-1")
	if err != nil || userID != u.ID {
		t.Fatalf("Consume = %q, %v", userID, err)
	}
	userID, err = repos.PasswordReset.Consume("hash-1")
	if err != nil || userID != "" {
		t.Fatalf("second Consume = %q, %v; want empty", userID, err)
	}
}

func TestPasswordResetExpiry(t *testing.T) {
	repos := newTestRepos(t)
	u := createUser(t, repos, "exp@example.com")

	repos.PasswordReset.Create(u.ID, "old", time.Now().Add(-time.Minute))
	if userID, _ := repos.PasswordReset.Consume("old"); userID != "" {
		t.Error("expired token consumed")
	}
	n, err := repos.PasswordReset.DeleteExpired()
	if err != nil || n != 1 {
		t.Errorf("DeleteExpired = %d, %v", n, err)
	}
}

func TestDeleteAccount(t *testing.T) {
	repos := newTestRepos(t)
	u := createUser(t, repos, "gone@example.com")
	keep := createUser(t, repos, "stay@example.com")

	repos.Wishlist.Add(u.ID, "m1")
	repos.Wishlist.Add(keep.ID, "m1")
	repos.Review.Create(&model.Review{UserID: u.ID, ContentID: "m1", Rating: 2})

	if err := repos.DeleteAccount(u.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if got, _ := repos.User.FindByID(u.ID); got != nil {
		t.Error("user still present")
	}
	if items, _ := repos.Wishlist.ListByUser(u.ID); len(items) != 0 {
		t.Error("wishlist not deleted")
	}
	if reviews, _ := repos.Review.ListByUser(u.ID); len(reviews) != 0 {
		t.Error("reviews not deleted")
	}
	if items, _ := repos.Wishlist.ListByUser(keep.ID); len(items) != 1 {
		t.Error("other user's wishlist touched")
	}
}
