package userstore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/dalemusser/bloodlink/internal/app/system/normalize"
	"github.com/dalemusser/bloodlink/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	RoleUser = "user"

	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

var (
	// ErrNotFound is returned when no user matches.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

func mapErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// GetByEmail looks up a user by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// Create inserts a new user after normalizing fields.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Email = normalize.Email(u.Email)
	u.Name = normalize.Name(u.Name)
	u.NameCI = normalize.NameCI(u.Name)
	u.Phone = normalize.Phone(u.Phone)
	u.Role = RoleUser
	if u.AuthProvider == "" {
		u.AuthProvider = ProviderPassword
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// FindOrCreateOAuth returns the user with email, creating one on first
// sign-in. created reports whether a new account was made.
func (s *Store) FindOrCreateOAuth(ctx context.Context, email, name, provider string) (u models.User, created bool, err error) {
	email = normalize.Email(email)
	name = normalize.Name(name)
	now := time.Now().UTC()
	newID := primitive.NewObjectID()

	filter := bson.M{"email": email}
	update := bson.M{"$setOnInsert": bson.M{
		"_id":                  newID,
		"email":                email,
		"name":                 name,
		"name_ci":              normalize.NameCI(name),
		"auth_provider":        provider,
		"role":                 RoleUser,
		"total_donations":      0,
		"blood_group_verified": false,
		"has_disease":          false,
		"created_at":           now,
		"updated_at":           now,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&u); err != nil {
		if wafflemongo.IsDup(err) {
			// Lost an insert race; the other writer's document is the answer.
			got, gerr := s.GetByEmail(ctx, email)
			if gerr != nil {
				return models.User{}, false, gerr
			}
			return *got, false, nil
		}
		return models.User{}, false, err
	}
	return u, u.ID == newID, nil
}

// ProfileUpdate holds the fields a user may change about themselves. Nil
// fields are left alone.
type ProfileUpdate struct {
	Name               *string
	BloodGroup         *string
	Location           *string
	Phone              *string
	HasDisease         *bool
	DiseaseDescription *string
}

// UpdateProfile applies upd and returns the updated user. Changing the
// blood group clears its verified flag.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) (*models.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != nil {
		n := normalize.Name(*upd.Name)
		set["name"] = n
		set["name_ci"] = normalize.NameCI(n)
	}
	if upd.BloodGroup != nil {
		set["blood_group"] = *upd.BloodGroup
		set["blood_group_verified"] = false
	}
	if upd.Location != nil {
		set["location"] = *upd.Location
	}
	if upd.Phone != nil {
		set["phone"] = normalize.Phone(*upd.Phone)
	}
	if upd.HasDisease != nil {
		set["has_disease"] = *upd.HasDisease
		if !*upd.HasDisease {
			set["disease_description"] = ""
		}
	}
	if upd.DiseaseDescription != nil {
		set["disease_description"] = *upd.DiseaseDescription
	}

	var u models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&u); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// RecordDonation increments the donation counter by one and stamps the
// last donation date.
func (s *Store) RecordDonation(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.User, error) {
	var u models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"total_donations": 1},
			"$set": bson.M{"last_donation_date": at, "updated_at": at},
		},
		opts,
	).Decode(&u)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

// SetVerifiedBloodGroup overwrites the blood group with a lab result.
func (s *Store) SetVerifiedBloodGroup(ctx context.Context, id primitive.ObjectID, bloodGroup string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"blood_group":          bloodGroup,
			"blood_group_verified": true,
			"updated_at":           time.Now().UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPasswordHash replaces the stored password hash.
func (s *Store) SetPasswordHash(ctx context.Context, id primitive.ObjectID, hash string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"password_hash": hash, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Contact is the slice of a user needed to reach them.
type Contact struct {
	ID    primitive.ObjectID `bson:"_id"`
	Name  string             `bson:"name"`
	Email string             `bson:"email"`
	Phone string             `bson:"phone,omitempty"`
}

var contactProjection = bson.M{"_id": 1, "name": 1, "email": 1, "phone": 1}

// ContactsByBloodGroup returns every user with bloodGroup except exclude.
func (s *Store) ContactsByBloodGroup(ctx context.Context, bloodGroup string, exclude primitive.ObjectID) ([]Contact, error) {
	return s.contacts(ctx, bson.M{"blood_group": bloodGroup, "_id": bson.M{"$ne": exclude}})
}

// AllContacts returns every user except exclude.
func (s *Store) AllContacts(ctx context.Context, exclude primitive.ObjectID) ([]Contact, error) {
	return s.contacts(ctx, bson.M{"_id": bson.M{"$ne": exclude}})
}

func (s *Store) contacts(ctx context.Context, filter bson.M) ([]Contact, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetProjection(contactProjection).SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []Contact
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListFilter narrows the admin accounts list.
type ListFilter struct {
	Search     string // prefix match on folded name or email
	BloodGroup string
	Limit      int64
	Skip       int64
}

// List returns users sorted by name.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.User, error) {
	filter := bson.M{}
	if f.BloodGroup != "" {
		filter["blood_group"] = f.BloodGroup
	}
	if f.Search != "" {
		q := primitive.Regex{Pattern: "^" + regexp.QuoteMeta(normalize.NameCI(f.Search))}
		e := primitive.Regex{Pattern: "^" + regexp.QuoteMeta(normalize.Email(f.Search))}
		filter["$or"] = bson.A{bson.M{"name_ci": q}, bson.M{"email": e}}
	}
	find := options.Find().
		SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}).
		SetProjection(bson.M{"password_hash": 0})
	if f.Limit > 0 {
		find.SetLimit(f.Limit)
	}
	if f.Skip > 0 {
		find.SetSkip(f.Skip)
	}
	cur, err := s.c.Find(ctx, filter, find)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AdminUpdate holds account fields an admin may change.
type AdminUpdate struct {
	Name               *string
	Email              *string
	BloodGroup         *string
	BloodGroupVerified *bool
	Location           *string
	Phone              *string
	TotalDonations     *int
}

// UpdateByAdmin applies upd and returns the updated user.
func (s *Store) UpdateByAdmin(ctx context.Context, id primitive.ObjectID, upd AdminUpdate) (*models.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != nil {
		n := normalize.Name(*upd.Name)
		set["name"] = n
		set["name_ci"] = normalize.NameCI(n)
	}
	if upd.Email != nil {
		set["email"] = normalize.Email(*upd.Email)
	}
	if upd.BloodGroup != nil {
		set["blood_group"] = *upd.BloodGroup
	}
	if upd.BloodGroupVerified != nil {
		set["blood_group_verified"] = *upd.BloodGroupVerified
	}
	if upd.Location != nil {
		set["location"] = *upd.Location
	}
	if upd.Phone != nil {
		set["phone"] = normalize.Phone(*upd.Phone)
	}
	if upd.TotalDonations != nil {
		set["total_donations"] = *upd.TotalDonations
	}

	var u models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&u)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, mapErr(err)
	}
	return &u, nil
}

// Delete removes the user document.
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

// ByIDs loads users keyed by id, without password hashes.
func (s *Store) ByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	out := make(map[primitive.ObjectID]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetProjection(bson.M{"password_hash": 0}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, cur.Err()
}

// Count returns the number of users.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}
