package adminstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/bloodlink/internal/app/system/normalize"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound       = errors.New("admin not found")
	ErrDuplicateEmail = errors.New("an admin with this email already exists")
	ErrBadRole        = errors.New(`role must be "admin" or "superadmin"`)
	ErrBadPermission  = errors.New("unknown permission")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("admins")}
}

func mapErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func validate(role string, perms []string) error {
	if role != models.AdminRoleAdmin && role != models.AdminRoleSuperAdmin {
		return ErrBadRole
	}
	for _, p := range perms {
		known := false
		for _, k := range models.AllPermissions {
			if p == k {
				known = true
				break
			}
		}
		if !known {
			return ErrBadPermission
		}
	}
	return nil
}

// GetByID loads an admin by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Admin, error) {
	var a models.Admin
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

// GetByEmail looks up an admin by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var a models.Admin
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&a); err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

// Create inserts an admin. PasswordHash must already be set.
func (s *Store) Create(ctx context.Context, a models.Admin) (models.Admin, error) {
	if a.Role == "" {
		a.Role = models.AdminRoleAdmin
	}
	if err := validate(a.Role, a.Permissions); err != nil {
		return models.Admin{}, err
	}
	a.ID = primitive.NewObjectID()
	a.Email = normalize.Email(a.Email)
	a.Name = normalize.Name(a.Name)
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now

	if _, err := s.c.InsertOne(ctx, a); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Admin{}, ErrDuplicateEmail
		}
		return models.Admin{}, err
	}
	return a, nil
}

// EnsureSuperAdmin creates the bootstrap superadmin if no admin has email.
// An existing account is left untouched. created reports an insert.
func (s *Store) EnsureSuperAdmin(ctx context.Context, email, name, passwordHash string) (created bool, err error) {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"email": normalize.Email(email)},
		bson.M{"$setOnInsert": bson.M{
			"email":         normalize.Email(email),
			"name":          normalize.Name(name),
			"password_hash": passwordHash,
			"role":          models.AdminRoleSuperAdmin,
			"created_at":    now,
			"updated_at":    now,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return false, nil
		}
		return false, err
	}
	return res.UpsertedCount > 0, nil
}

// List returns all admins sorted by email.
func (s *Store) List(ctx context.Context) ([]models.Admin, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "email", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Admin{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ByIDs loads admins keyed by id, without password hashes.
func (s *Store) ByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Admin, error) {
	out := make(map[primitive.ObjectID]models.Admin, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetProjection(bson.M{"password_hash": 0}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var a models.Admin
		if err := cur.Decode(&a); err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, cur.Err()
}

// Update holds the mutable admin fields. Nil fields are left alone.
type Update struct {
	Name         *string
	Role         *string
	Permissions  *[]string
	PasswordHash *string
}

// Update applies upd and returns the updated admin.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (*models.Admin, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	role := models.AdminRoleAdmin
	var perms []string
	if upd.Role != nil {
		role = *upd.Role
		set["role"] = role
	}
	if upd.Permissions != nil {
		perms = *upd.Permissions
		set["permissions"] = perms
	}
	if err := validate(role, perms); err != nil {
		return nil, err
	}
	if upd.Name != nil {
		set["name"] = normalize.Name(*upd.Name)
	}
	if upd.PasswordHash != nil {
		set["password_hash"] = *upd.PasswordHash
	}

	var a models.Admin
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&a); err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

// Delete removes an admin.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
