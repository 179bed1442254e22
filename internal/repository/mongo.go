package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mmeshcher/bistro-boss/internal/model"
)

type userDoc struct {
	ID    primitive.ObjectID `bson:"_id,omitempty"`
	Name  string             `bson:"name,omitempty"`
	Email string             `bson:"email"`
	Role  string             `bson:"role,omitempty"`
}

type menuDoc struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Name     string             `bson:"name"`
	Recipe   string             `bson:"recipe"`
	Image    string             `bson:"image"`
	Category string             `bson:"category"`
	Price    float64            `bson:"price"`
}

type reviewDoc struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	Name    string             `bson:"name"`
	Details string             `bson:"details"`
	Rating  float64            `bson:"rating"`
}

type cartDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Email      string             `bson:"email"`
	MenuItemID string             `bson:"menuId"`
	Name       string             `bson:"name,omitempty"`
	Image      string             `bson:"image,omitempty"`
	Price      float64            `bson:"price"`
}

type paymentDoc struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty"`
	Email         string               `bson:"email"`
	Price         float64              `bson:"price"`
	TransactionID string               `bson:"transactionId"`
	Date          time.Time            `bson:"date"`
	CartIDs       []primitive.ObjectID `bson:"cartIds"`
	MenuItemIDs   []primitive.ObjectID `bson:"menuItemIds"`
	Status        string               `bson:"status"`
}

// MongoRepository предоставляет доступ к хранилищу данных в MongoDB.
type MongoRepository struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoRepository подключается к MongoDB и создаёт индексы уникальности.
func NewMongoRepository(uri, database string) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOpts := options.Client().ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetConnectTimeout(5 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	r := newMongoRepository(client, client.Database(database))

	if err := r.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return r, nil
}

func newMongoRepository(client *mongo.Client, db *mongo.Database) *MongoRepository {
	return &MongoRepository{client: client, db: db}
}

func (r *MongoRepository) ensureIndexes(ctx context.Context) error {
	indexes := map[string]mongo.IndexModel{
		usersCollection: {
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		paymentsCollection: {
			Keys:    bson.D{{Key: "transactionId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		cartsCollection: {
			Keys: bson.D{{Key: "email", Value: 1}},
		},
	}

	for coll, idx := range indexes {
		if _, err := r.db.Collection(coll).Indexes().CreateOne(ctx, idx); err != nil {
			return fmt.Errorf("create %s index: %w", coll, err)
		}
	}
	return nil
}

// Close отключается от MongoDB.
func (r *MongoRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}

func objectIDs(ids []string) ([]primitive.ObjectID, error) {
	res := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := objectID(id)
		if err != nil {
			return nil, err
		}
		res = append(res, oid)
	}
	return res, nil
}

func hexIDs(oids []primitive.ObjectID) []string {
	res := make([]string, 0, len(oids))
	for _, oid := range oids {
		res = append(res, oid.Hex())
	}
	return res
}

func insertResult(res *mongo.InsertOneResult) model.InsertResult {
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return model.Inserted(oid.Hex())
	}
	return model.Inserted(fmt.Sprint(res.InsertedID))
}

func updateResult(res *mongo.UpdateResult) model.UpdateResult {
	out := model.UpdateResult{
		Acknowledged:  true,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
	}
	if oid, ok := res.UpsertedID.(primitive.ObjectID); ok {
		id := oid.Hex()
		out.UpsertedID = &id
	}
	return out
}

func findAll[D any, M any](ctx context.Context, coll *mongo.Collection, filter any, opts *options.FindOptions, conv func(D) M) ([]M, error) {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", coll.Name(), err)
	}

	var docs []D
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
	}

	res := make([]M, 0, len(docs))
	for _, d := range docs {
		res = append(res, conv(d))
	}
	return res, nil
}

func (r *MongoRepository) deleteByID(ctx context.Context, coll, id string) (model.DeleteResult, error) {
	oid, err := objectID(id)
	if err != nil {
		return model.DeleteResult{}, err
	}

	res, err := r.db.Collection(coll).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return model.DeleteResult{}, fmt.Errorf("delete from %s: %w", coll, err)
	}

	return model.DeleteResult{Acknowledged: true, DeletedCount: res.DeletedCount}, nil
}

func menuFromDoc(d menuDoc) model.MenuItem {
	return model.MenuItem{
		ID:       d.ID.Hex(),
		Name:     d.Name,
		Recipe:   d.Recipe,
		Image:    d.Image,
		Category: d.Category,
		Price:    d.Price,
	}
}

// ListMenu возвращает все блюда меню.
func (r *MongoRepository) ListMenu(ctx context.Context) ([]model.MenuItem, error) {
	return findAll(ctx, r.db.Collection(menuCollection), bson.M{}, nil, menuFromDoc)
}

// GetMenuItem возвращает блюдо по идентификатору.
func (r *MongoRepository) GetMenuItem(ctx context.Context, id string) (*model.MenuItem, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var d menuDoc
	if err := r.db.Collection(menuCollection).FindOne(ctx, bson.M{"_id": oid}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get menu item: %w", err)
	}

	item := menuFromDoc(d)
	return &item, nil
}

// CreateMenuItem добавляет блюдо в меню.
func (r *MongoRepository) CreateMenuItem(ctx context.Context, item model.MenuItem) (model.InsertResult, error) {
	res, err := r.db.Collection(menuCollection).InsertOne(ctx, menuDoc{
		Name:     item.Name,
		Recipe:   item.Recipe,
		Image:    item.Image,
		Category: item.Category,
		Price:    item.Price,
	})
	if err != nil {
		return model.InsertResult{}, fmt.Errorf("insert menu item: %w", err)
	}
	return insertResult(res), nil
}

// UpdateMenuItem изменяет переданные поля блюда.
func (r *MongoRepository) UpdateMenuItem(ctx context.Context, id string, patch model.MenuItemPatch) (model.UpdateResult, error) {
	oid, err := objectID(id)
	if err != nil {
		return model.UpdateResult{}, err
	}

	set := bson.M{}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Recipe != nil {
		set["recipe"] = *patch.Recipe
	}
	if patch.Image != nil {
		set["image"] = *patch.Image
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}

	res, err := r.db.Collection(menuCollection).UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return model.UpdateResult{}, fmt.Errorf("update menu item: %w", err)
	}
	return updateResult(res), nil
}

// DeleteMenuItem удаляет блюдо из меню.
func (r *MongoRepository) DeleteMenuItem(ctx context.Context, id string) (model.DeleteResult, error) {
	return r.deleteByID(ctx, menuCollection, id)
}

// ListReviews возвращает все отзывы.
func (r *MongoRepository) ListReviews(ctx context.Context) ([]model.Review, error) {
	return findAll(ctx, r.db.Collection(reviewsCollection), bson.M{}, nil, func(d reviewDoc) model.Review {
		return model.Review{ID: d.ID.Hex(), Name: d.Name, Details: d.Details, Rating: d.Rating}
	})
}

func cartFromDoc(d cartDoc) model.CartItem {
	return model.CartItem{
		ID:         d.ID.Hex(),
		Email:      d.Email,
		MenuItemID: d.MenuItemID,
		Name:       d.Name,
		Image:      d.Image,
		Price:      d.Price,
	}
}

// ListCartItems возвращает корзину пользователя.
func (r *MongoRepository) ListCartItems(ctx context.Context, email string) ([]model.CartItem, error) {
	return findAll(ctx, r.db.Collection(cartsCollection), bson.M{"email": email}, nil, cartFromDoc)
}

// CartItemsByIDs возвращает позиции корзины с указанными идентификаторами.
func (r *MongoRepository) CartItemsByIDs(ctx context.Context, ids []string) ([]model.CartItem, error) {
	oids, err := objectIDs(ids)
	if err != nil {
		return nil, err
	}
	return findAll(ctx, r.db.Collection(cartsCollection), bson.M{"_id": bson.M{"$in": oids}}, nil, cartFromDoc)
}

// AddCartItem кладёт позицию в корзину пользователя.
// Идентификатор блюда должен быть ObjectID, иначе позицию нельзя будет оплатить.
func (r *MongoRepository) AddCartItem(ctx context.Context, item model.CartItem) (model.InsertResult, error) {
	if _, err := objectID(item.MenuItemID); err != nil {
		return model.InsertResult{}, err
	}

	res, err := r.db.Collection(cartsCollection).InsertOne(ctx, cartDoc{
		Email:      item.Email,
		MenuItemID: item.MenuItemID,
		Name:       item.Name,
		Image:      item.Image,
		Price:      item.Price,
	})
	if err != nil {
		return model.InsertResult{}, fmt.Errorf("insert cart item: %w", err)
	}
	return insertResult(res), nil
}

// DeleteCartItem удаляет позицию корзины.
func (r *MongoRepository) DeleteCartItem(ctx context.Context, id string) (model.DeleteResult, error) {
	return r.deleteByID(ctx, cartsCollection, id)
}

// CreateUser создаёт пользователя, если пользователя с таким email ещё нет.
func (r *MongoRepository) CreateUser(ctx context.Context, u model.User) (model.InsertResult, error) {
	res, err := r.db.Collection(usersCollection).UpdateOne(ctx,
		bson.M{"email": u.Email},
		bson.M{"$setOnInsert": userDoc{Name: u.Name, Email: u.Email, Role: u.Role}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.InsertResult{}, fmt.Errorf("%w: %s", ErrUserExists, u.Email)
		}
		return model.InsertResult{}, fmt.Errorf("create user: %w", err)
	}
	if res.UpsertedCount == 0 {
		return model.InsertResult{}, fmt.Errorf("%w: %s", ErrUserExists, u.Email)
	}

	upserted := updateResult(res).UpsertedID
	if upserted == nil {
		return model.InsertResult{Acknowledged: true}, nil
	}
	return model.Inserted(*upserted), nil
}

func userFromDoc(d userDoc) model.User {
	return model.User{ID: d.ID.Hex(), Name: d.Name, Email: d.Email, Role: d.Role}
}

// ListUsers возвращает всех пользователей.
func (r *MongoRepository) ListUsers(ctx context.Context) ([]model.User, error) {
	return findAll(ctx, r.db.Collection(usersCollection), bson.M{}, nil, userFromDoc)
}

// GetUserByEmail возвращает пользователя по email.
func (r *MongoRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var d userDoc
	if err := r.db.Collection(usersCollection).FindOne(ctx, bson.M{"email": email}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	u := userFromDoc(d)
	return &u, nil
}

// DeleteUser удаляет пользователя.
func (r *MongoRepository) DeleteUser(ctx context.Context, id string) (model.DeleteResult, error) {
	return r.deleteByID(ctx, usersCollection, id)
}

// PromoteUser назначает пользователю роль администратора.
func (r *MongoRepository) PromoteUser(ctx context.Context, id string) (model.UpdateResult, error) {
	oid, err := objectID(id)
	if err != nil {
		return model.UpdateResult{}, err
	}

	res, err := r.db.Collection(usersCollection).UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"role": model.RoleAdmin}},
	)
	if err != nil {
		return model.UpdateResult{}, fmt.Errorf("promote user: %w", err)
	}
	return updateResult(res), nil
}

// FinalizePayment в одной транзакции удаляет оплаченные позиции корзины и сохраняет оплату.
// Требует развёртывания MongoDB с поддержкой транзакций (replica set).
func (r *MongoRepository) FinalizePayment(ctx context.Context, p model.Payment) (model.FinalizeResult, error) {
	cartIDs, err := objectIDs(p.CartIDs)
	if err != nil {
		return model.FinalizeResult{}, err
	}
	menuItemIDs, err := objectIDs(p.MenuItemIDs)
	if err != nil {
		return model.FinalizeResult{}, err
	}

	sess, err := r.client.StartSession()
	if err != nil {
		return model.FinalizeResult{}, fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	out, err := sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return r.finalizeTx(sc, p, cartIDs, menuItemIDs)
	})
	if err != nil {
		return model.FinalizeResult{}, err
	}

	return out.(model.FinalizeResult), nil
}

// finalizeTx выполняет тело транзакции оплаты в переданном контексте сессии.
func (r *MongoRepository) finalizeTx(ctx context.Context, p model.Payment, cartIDs, menuItemIDs []primitive.ObjectID) (model.FinalizeResult, error) {
	del, err := r.db.Collection(cartsCollection).DeleteMany(ctx, bson.M{
		"_id":   bson.M{"$in": cartIDs},
		"email": p.Email,
	})
	if err != nil {
		return model.FinalizeResult{}, fmt.Errorf("delete cart items: %w", err)
	}
	if del.DeletedCount != int64(len(cartIDs)) {
		return model.FinalizeResult{}, ErrCartConflict
	}

	ins, err := r.db.Collection(paymentsCollection).InsertOne(ctx, paymentDoc{
		Email:         p.Email,
		Price:         p.Price,
		TransactionID: p.TransactionID,
		Date:          p.Date,
		CartIDs:       cartIDs,
		MenuItemIDs:   menuItemIDs,
		Status:        p.Status,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.FinalizeResult{}, fmt.Errorf("%w: %s", ErrPaymentExists, p.TransactionID)
		}
		return model.FinalizeResult{}, fmt.Errorf("insert payment: %w", err)
	}

	return model.FinalizeResult{
		Payment: insertResult(ins),
		Cart:    model.DeleteResult{Acknowledged: true, DeletedCount: del.DeletedCount},
	}, nil
}

// ListPaymentsByEmail возвращает историю оплат пользователя, новые первыми.
func (r *MongoRepository) ListPaymentsByEmail(ctx context.Context, email string) ([]model.Payment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	return findAll(ctx, r.db.Collection(paymentsCollection), bson.M{"email": email}, opts, func(d paymentDoc) model.Payment {
		return model.Payment{
			ID:            d.ID.Hex(),
			Email:         d.Email,
			Price:         d.Price,
			TransactionID: d.TransactionID,
			Date:          d.Date,
			CartIDs:       hexIDs(d.CartIDs),
			MenuItemIDs:   hexIDs(d.MenuItemIDs),
			Status:        d.Status,
		}
	})
}

func revenuePipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "totalRevenue", Value: bson.D{{Key: "$sum", Value: "$price"}}},
		}}},
	}
}

func categoryStatsPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$unwind", Value: "$menuItemIds"}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: menuCollection},
			{Key: "localField", Value: "menuItemIds"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "menuItems"},
		}}},
		{{Key: "$unwind", Value: "$menuItems"}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$menuItems.category"},
			{Key: "quantity", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "revenue", Value: bson.D{{Key: "$sum", Value: "$menuItems.price"}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "category", Value: "$_id"},
			{Key: "quantity", Value: 1},
			{Key: "revenue", Value: 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "category", Value: 1}}}},
	}
}

// AdminStats возвращает оценку количества пользователей, блюд, заказов и общую выручку.
func (r *MongoRepository) AdminStats(ctx context.Context) (model.AdminStats, error) {
	var (
		stats model.AdminStats
		err   error
	)

	if stats.Users, err = r.db.Collection(usersCollection).EstimatedDocumentCount(ctx); err != nil {
		return model.AdminStats{}, fmt.Errorf("count users: %w", err)
	}
	if stats.MenuItems, err = r.db.Collection(menuCollection).EstimatedDocumentCount(ctx); err != nil {
		return model.AdminStats{}, fmt.Errorf("count menu: %w", err)
	}
	if stats.Orders, err = r.db.Collection(paymentsCollection).EstimatedDocumentCount(ctx); err != nil {
		return model.AdminStats{}, fmt.Errorf("count payments: %w", err)
	}

	cursor, err := r.db.Collection(paymentsCollection).Aggregate(ctx, revenuePipeline())
	if err != nil {
		return model.AdminStats{}, fmt.Errorf("aggregate revenue: %w", err)
	}

	var rows []struct {
		TotalRevenue float64 `bson:"totalRevenue"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return model.AdminStats{}, fmt.Errorf("decode revenue: %w", err)
	}
	if len(rows) > 0 {
		stats.Revenue = rows[0].TotalRevenue
	}

	return stats, nil
}

// CategoryStats группирует позиции всех оплат по категориям блюд.
// Выручка считается по текущим ценам меню.
func (r *MongoRepository) CategoryStats(ctx context.Context) ([]model.CategoryStat, error) {
	cursor, err := r.db.Collection(paymentsCollection).Aggregate(ctx, categoryStatsPipeline())
	if err != nil {
		return nil, fmt.Errorf("aggregate category stats: %w", err)
	}

	var rows []struct {
		Category string  `bson:"category"`
		Quantity int64   `bson:"quantity"`
		Revenue  float64 `bson:"revenue"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode category stats: %w", err)
	}

	stats := make([]model.CategoryStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, model.CategoryStat{Category: row.Category, Quantity: row.Quantity, Revenue: row.Revenue})
	}
	return stats, nil
}
