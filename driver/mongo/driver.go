// Package driver provides the MongoDB backend for the mango ODM.
// This file implements the core.Driver contract: connection lifecycle,
// document CRUD, counting, and collection/index administration.
package driver

import (
	"context"
	"time"

	"github.com/leandroluk/mango/core"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mopt "go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDriver adapts a mongo.Client to the core.Driver contract.
//
// Namespaces arrive fully resolved: the collection name already carries any
// configured prefix, and an empty namespace database falls back to the
// driver's default database.
type MongoDriver struct {
	client          *mongo.Client
	defaultDatabase string
}

var _ core.Driver = (*MongoDriver)(nil)

// Open builds a driver for the given connection URI. It matches the
// core.Opener signature used by the connection pool; connectivity is
// verified by Connect.
func Open(ctx context.Context, uri, defaultDB string) (core.Driver, error) {
	opts := mopt.Client().ApplyURI(uri)
	opts.SetConnectTimeout(10 * time.Second).SetServerSelectionTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &MongoDriver{client: client, defaultDatabase: defaultDB}, nil
}

func (driver *MongoDriver) dbFor(ns core.Namespace) *mongo.Database {
	dbName := driver.defaultDatabase
	if ns.Database != "" {
		dbName = ns.Database
	}
	return driver.client.Database(dbName)
}

func (driver *MongoDriver) coll(ns core.Namespace) *mongo.Collection {
	return driver.dbFor(ns).Collection(ns.Collection)
}

// withSession rebinds the context to an ongoing transaction session, when
// one was injected upstream.
func (driver *MongoDriver) withSession(ctx context.Context) context.Context {
	if tx := core.TransactionFrom(ctx); tx != nil {
		if mt, ok := tx.(*mongoTransaction); ok {
			return mongo.NewSessionContext(ctx, mt.session)
		}
	}
	return ctx
}

func (driver *MongoDriver) Connect(ctx context.Context) error {
	return driver.client.Ping(ctx, nil)
}

func (driver *MongoDriver) Ping(ctx context.Context) error {
	return driver.client.Ping(ctx, nil)
}

func (driver *MongoDriver) Close(ctx context.Context) error {
	return driver.client.Disconnect(ctx)
}

func (driver *MongoDriver) Transaction(ctx context.Context) (core.Transaction, error) {
	session, err := driver.client.StartSession()
	if err != nil {
		return nil, err
	}
	if err := session.StartTransaction(); err != nil {
		return nil, err
	}
	return &mongoTransaction{session: session}, nil
}

func (driver *MongoDriver) Insert(ctx context.Context, ns core.Namespace, documents ...map[string]any) error {
	if len(documents) == 0 {
		return nil
	}
	ctx = driver.withSession(ctx)
	documentList := make([]any, 0, len(documents))
	for _, document := range documents {
		documentList = append(documentList, document)
	}
	_, err := driver.coll(ns).InsertMany(ctx, documentList)
	return err
}

func (driver *MongoDriver) find(ctx context.Context, ns core.Namespace, query *core.Where, single bool) ([]map[string]any, error) {
	ctx = driver.withSession(ctx)
	filter := buildFilter(safeCondition(query))
	findOpts := mopt.Find()

	if len(query.Sort) > 0 {
		findOpts.SetSort(sortDocument(query.Sort))
	}
	if len(query.Fields) > 0 {
		projection := bson.D{}
		for _, field := range query.Fields {
			projection = append(projection, bson.E{Key: field, Value: 1})
		}
		findOpts.SetProjection(projection)
	}

	if single {
		findOpts.SetLimit(1)
	} else {
		if query.Limit > 0 {
			findOpts.SetLimit(int64(query.Limit))
		}
		if query.Offset > 0 {
			findOpts.SetSkip(int64(query.Offset))
		}
	}

	cursor, err := driver.coll(ns).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var resultList []map[string]any
	for cursor.Next(ctx) {
		var bsonMap bson.M
		if err := cursor.Decode(&bsonMap); err != nil {
			return nil, err
		}
		resultList = append(resultList, map[string]any(bsonMap))
		if single {
			break
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return resultList, nil
}

func (driver *MongoDriver) FindOne(ctx context.Context, ns core.Namespace, query *core.Where) (map[string]any, error) {
	rowList, err := driver.find(ctx, ns, query, true)
	if err != nil {
		return nil, err
	}
	if len(rowList) == 0 {
		return nil, nil
	}
	return rowList[0], nil
}

func (driver *MongoDriver) FindMany(ctx context.Context, ns core.Namespace, query *core.Where) ([]map[string]any, error) {
	return driver.find(ctx, ns, query, false)
}

func (driver *MongoDriver) Update(ctx context.Context, ns core.Namespace, condition *core.Condition, changes core.Changes) error {
	ctx = driver.withSession(ctx)
	filter := buildFilter(condition)
	update := bson.M{"$set": changes}
	_, err := driver.coll(ns).UpdateMany(ctx, filter, update)
	return err
}

func (driver *MongoDriver) Delete(ctx context.Context, ns core.Namespace, condition *core.Condition) error {
	ctx = driver.withSession(ctx)
	filter := buildFilter(condition)
	_, err := driver.coll(ns).DeleteMany(ctx, filter)
	return err
}

func (driver *MongoDriver) Count(ctx context.Context, ns core.Namespace, condition *core.Condition) (int64, error) {
	ctx = driver.withSession(ctx)
	filter := buildFilter(condition)
	return driver.coll(ns).CountDocuments(ctx, filter)
}

func (driver *MongoDriver) CreateCollection(ctx context.Context, ns core.Namespace) error {
	return driver.dbFor(ns).CreateCollection(ctx, ns.Collection)
}

func (driver *MongoDriver) HasCollection(ctx context.Context, ns core.Namespace) (bool, error) {
	names, err := driver.dbFor(ns).ListCollectionNames(ctx, bson.M{"name": ns.Collection})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

func (driver *MongoDriver) DropCollection(ctx context.Context, ns core.Namespace) error {
	return driver.coll(ns).Drop(ctx)
}

func (driver *MongoDriver) RenameCollection(ctx context.Context, ns core.Namespace, newName string) error {
	db := driver.dbFor(ns)
	command := bson.D{
		{Key: "renameCollection", Value: db.Name() + "." + ns.Collection},
		{Key: "to", Value: db.Name() + "." + newName},
	}
	return driver.client.Database("admin").RunCommand(ctx, command).Err()
}

func (driver *MongoDriver) CreateIndex(ctx context.Context, ns core.Namespace, index core.IndexDeclaration) error {
	model := mongo.IndexModel{
		Keys:    sortDocument(index.Keys),
		Options: indexOptions(index.Options),
	}
	_, err := driver.coll(ns).Indexes().CreateOne(ctx, model)
	return err
}

func (driver *MongoDriver) DropIndex(ctx context.Context, ns core.Namespace, name string) error {
	_, err := driver.coll(ns).Indexes().DropOne(ctx, name)
	return err
}
