package mongo

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/diagnosis/estate-listings/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type propertyDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Image       string             `bson:"image"`
	Price       float64            `bson:"price"`
	Location    string             `bson:"location"`
	Status      string             `bson:"status,omitempty"`
	Featured    bool               `bson:"featured"`
	Description string             `bson:"description,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func newPropertyDoc(p *domain.Property) propertyDoc {
	return propertyDoc{
		Name:        p.Name,
		Image:       p.Image,
		Price:       p.Price,
		Location:    p.Location,
		Status:      string(p.Status),
		Featured:    p.Featured,
		Description: p.Description,
	}
}

func (d *propertyDoc) toDomain() domain.Property {
	return domain.Property{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Image:       d.Image,
		Price:       d.Price,
		Location:    d.Location,
		Status:      domain.PropertyStatus(d.Status),
		Featured:    d.Featured,
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type PropertiesRepo struct{ coll *mongo.Collection }

func NewPropertiesRepo(db *mongo.Database) *PropertiesRepo {
	return &PropertiesRepo{coll: db.Collection(propertiesCollection)}
}

func (r *PropertiesRepo) Create(ctx context.Context, in *domain.Property) (*domain.Property, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	doc := newPropertyDoc(in)
	doc.ID = primitive.NewObjectID()
	doc.CreatedAt = now()
	doc.UpdatedAt = doc.CreatedAt

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert property: %w", err)
	}
	p := doc.toDomain()
	return &p, nil
}

func (r *PropertiesRepo) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc propertyDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if isNoDocuments(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get property: %w", err)
	}
	p := doc.toDomain()
	return &p, nil
}

func (r *PropertiesRepo) List(ctx context.Context, f domain.PropertyFilter) ([]domain.Property, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, listFilter(f), options.Find().SetSort(listSort(f.Sort)))
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]domain.Property, 0)
	for cur.Next(ctx) {
		var doc propertyDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode property: %w", err)
		}
		out = append(out, doc.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	return out, nil
}

func (r *PropertiesRepo) Update(ctx context.Context, id string, in *domain.Property) (*domain.Property, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	set := bson.M{
		"name":        in.Name,
		"image":       in.Image,
		"price":       in.Price,
		"location":    in.Location,
		"status":      string(in.Status),
		"featured":    in.Featured,
		"description": in.Description,
		"updatedAt":   now(),
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc propertyDoc
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if isNoDocuments(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update property: %w", err)
	}
	p := doc.toDomain()
	return &p, nil
}

func (r *PropertiesRepo) Delete(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return domain.ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete property: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PropertiesRepo) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	oids := make(bson.A, 0, len(ids))
	for _, id := range ids {
		if oid, ok := objectID(id); ok {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return 0, fmt.Errorf("bulk delete properties: %w", err)
	}
	return res.DeletedCount, nil
}

func listFilter(f domain.PropertyFilter) bson.M {
	filter := bson.M{}
	if f.ActiveOnly {
		// $in with null also matches documents that never had a status
		filter["status"] = bson.M{"$in": bson.A{string(domain.PropertyActive), "", nil}}
	}
	price := bson.M{}
	if f.MinPrice != nil {
		price["$gte"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		price["$lte"] = *f.MaxPrice
	}
	if len(price) > 0 {
		filter["price"] = price
	}
	if f.Location != "" {
		filter["location"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Location), Options: "i"}
	}
	return filter
}

func listSort(order domain.SortOrder) bson.D {
	switch order {
	case domain.SortPriceAsc:
		return bson.D{{Key: "price", Value: 1}, {Key: "createdAt", Value: -1}}
	case domain.SortPriceDesc:
		return bson.D{{Key: "price", Value: -1}, {Key: "createdAt", Value: -1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
	}
}
