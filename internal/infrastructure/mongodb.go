package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Agurato/kolnoa/internal/model"
)

const schemaSampleSize = 20

type MongoDB struct {
	client *mongo.Client
	db     *mongo.Database

	moviesColl     *mongo.Collection
	actorsColl     *mongo.Collection
	theatersColl   *mongo.Collection
	showtimesColl  *mongo.Collection
	profilesColl   *mongo.Collection
	reviewsColl    *mongo.Collection
	watchlistsColl *mongo.Collection
	tokensColl     *mongo.Collection
	logsColl       *mongo.Collection
}

// usernameCollation compares usernames case-insensitively
var usernameCollation = &options.Collation{Locale: "en", Strength: 2}

// NewMongoDB connects to MongoDB and makes sure the indexes exist
func NewMongoDB(ctx context.Context, uri, dbName string) (*MongoDB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(dbName)
	m := &MongoDB{
		client:         client,
		db:             db,
		moviesColl:     db.Collection("movies"),
		actorsColl:     db.Collection("actors"),
		theatersColl:   db.Collection("theaters"),
		showtimesColl:  db.Collection("showtimes"),
		profilesColl:   db.Collection("profiles"),
		reviewsColl:    db.Collection("reviews"),
		watchlistsColl: db.Collection("watchlists"),
		tokensColl:     db.Collection("tokens"),
		logsColl:       db.Collection("logs"),
	}
	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	log.Info().Str("database", dbName).Msg("Using MongoDB database")
	return m, nil
}

func (m *MongoDB) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	positiveTMDBID := options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"tmdb_id": bson.M{"$gt": 0}})
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		m.moviesColl: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "tmdb_id", Value: 1}}, Options: positiveTMDBID},
			{Keys: bson.D{{Key: "characters.actor_tmdb_id", Value: 1}}},
		},
		m.actorsColl: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "tmdb_id", Value: 1}}, Options: positiveTMDBID},
		},
		m.theatersColl: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique},
		},
		m.showtimesColl: {
			{Keys: bson.D{{Key: "movie_id", Value: 1}, {Key: "starts_at", Value: 1}}},
			{Keys: bson.D{{Key: "theater_id", Value: 1}, {Key: "starts_at", Value: 1}}},
		},
		m.profilesColl: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetCollation(usernameCollation)},
		},
		m.reviewsColl: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "movie_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "movie_id", Value: 1}, {Key: "updated_at", Value: -1}}},
		},
		m.watchlistsColl: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "movie_id", Value: 1}}, Options: unique},
		},
		m.logsColl: {
			{Keys: bson.D{{Key: "source", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}
	for coll, models := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

// Close closes the MongoDB connection
func (m *MongoDB) Close() error {
	return m.client.Disconnect(context.Background())
}

func (m *MongoDB) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

// findAll decodes every document matched by filter
func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var items []T
	for cur.Next(ctx) {
		var item T
		if err := cur.Decode(&item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, cur.Err()
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter any, what string, opts ...*options.FindOneOptions) (*T, error) {
	var item T
	if err := coll.FindOne(ctx, filter, opts...).Decode(&item); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", what, model.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return &item, nil
}

func upsertByID(ctx context.Context, coll *mongo.Collection, id any, doc any, what string) error {
	_, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", what, model.ErrAlreadyExists)
		}
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

func (m *MongoDB) GetMovies(ctx context.Context) ([]model.Movie, error) {
	opts := options.Find().SetSort(bson.D{{Key: "popularity", Value: -1}, {Key: "title_en", Value: 1}})
	movies, err := findAll[model.Movie](ctx, m.moviesColl, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("get movies: %w", err)
	}
	return movies, nil
}

func (m *MongoDB) GetMovieByID(ctx context.Context, id string) (*model.Movie, error) {
	return findOne[model.Movie](ctx, m.moviesColl, bson.M{"_id": id}, "get movie "+id)
}

func (m *MongoDB) GetMovieBySlug(ctx context.Context, slug string) (*model.Movie, error) {
	return findOne[model.Movie](ctx, m.moviesColl, bson.M{"slug": slug}, "get movie "+slug)
}

func (m *MongoDB) GetMovieByTMDBID(ctx context.Context, tmdbID int64) (*model.Movie, error) {
	return findOne[model.Movie](ctx, m.moviesColl, bson.M{"tmdb_id": tmdbID}, fmt.Sprintf("get movie with TMDB ID %d", tmdbID))
}

// UpsertMovie inserts or replaces a movie. A nil Characters slice keeps the stored cast.
func (m *MongoDB) UpsertMovie(ctx context.Context, movie *model.Movie) error {
	doc := *movie
	if doc.Characters == nil {
		if existing, err := m.GetMovieByID(ctx, movie.ID); err == nil {
			doc.Characters = existing.Characters
		}
	}
	return upsertByID(ctx, m.moviesColl, doc.ID, doc, "upsert movie "+doc.Slug)
}

func (m *MongoDB) GetMovieCast(ctx context.Context, movieID string) ([]model.CastMember, error) {
	movie, err := m.GetMovieByID(ctx, movieID)
	if err != nil {
		return nil, err
	}
	characters := append([]model.Character(nil), movie.Characters...)
	sort.SliceStable(characters, func(i, j int) bool { return characters[i].Order < characters[j].Order })

	ids := make([]int64, 0, len(characters))
	for _, c := range characters {
		ids = append(ids, c.ActorTMDBID)
	}
	actors, err := findAll[model.Actor](ctx, m.actorsColl, bson.M{"tmdb_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("get cast of movie %s: %w", movieID, err)
	}
	byTMDBID := make(map[int64]model.Actor, len(actors))
	for _, a := range actors {
		byTMDBID[a.TMDBID] = a
	}

	var cast []model.CastMember
	for _, c := range characters {
		if actor, ok := byTMDBID[c.ActorTMDBID]; ok {
			cast = append(cast, model.CastMember{Actor: actor, CharacterName: c.CharacterName})
		}
	}
	return cast, nil
}

func (m *MongoDB) GetMoviesWithActor(ctx context.Context, actorTMDBID int64) ([]model.Movie, error) {
	opts := options.Find().SetSort(bson.D{{Key: "year", Value: -1}, {Key: "title_en", Value: 1}})
	movies, err := findAll[model.Movie](ctx, m.moviesColl, bson.M{"characters.actor_tmdb_id": actorTMDBID}, opts)
	if err != nil {
		return nil, fmt.Errorf("get movies with actor %d: %w", actorTMDBID, err)
	}
	return movies, nil
}

func (m *MongoDB) GetActors(ctx context.Context) ([]model.Actor, error) {
	actors, err := findAll[model.Actor](ctx, m.actorsColl, bson.M{}, options.Find().SetSort(bson.D{{Key: "name_en", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("get actors: %w", err)
	}
	return actors, nil
}

func (m *MongoDB) GetActorBySlug(ctx context.Context, slug string) (*model.Actor, error) {
	return findOne[model.Actor](ctx, m.actorsColl, bson.M{"slug": slug}, "get actor "+slug)
}

func (m *MongoDB) GetActorByTMDBID(ctx context.Context, tmdbID int64) (*model.Actor, error) {
	return findOne[model.Actor](ctx, m.actorsColl, bson.M{"tmdb_id": tmdbID}, fmt.Sprintf("get actor with TMDB ID %d", tmdbID))
}

func (m *MongoDB) UpsertActor(ctx context.Context, a *model.Actor) error {
	return upsertByID(ctx, m.actorsColl, a.ID, a, "upsert actor "+a.Slug)
}

func (m *MongoDB) GetTheaters(ctx context.Context) ([]model.Theater, error) {
	opts := options.Find().SetSort(bson.D{{Key: "city", Value: 1}, {Key: "name_en", Value: 1}})
	theaters, err := findAll[model.Theater](ctx, m.theatersColl, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("get theaters: %w", err)
	}
	return theaters, nil
}

func (m *MongoDB) GetTheaterByID(ctx context.Context, id string) (*model.Theater, error) {
	return findOne[model.Theater](ctx, m.theatersColl, bson.M{"_id": id}, "get theater "+id)
}

func (m *MongoDB) GetTheaterBySlug(ctx context.Context, slug string) (*model.Theater, error) {
	return findOne[model.Theater](ctx, m.theatersColl, bson.M{"slug": slug}, "get theater "+slug)
}

func (m *MongoDB) UpsertTheater(ctx context.Context, t *model.Theater) error {
	return upsertByID(ctx, m.theatersColl, t.ID, t, "upsert theater "+t.Slug)
}

func (m *MongoDB) findShowtimes(ctx context.Context, filter bson.M, from, to time.Time) ([]model.Showtime, error) {
	filter["starts_at"] = bson.M{"$gte": from, "$lt": to}
	return findAll[model.Showtime](ctx, m.showtimesColl, filter, options.Find().SetSort(bson.D{{Key: "starts_at", Value: 1}}))
}

func (m *MongoDB) GetShowtimes(ctx context.Context, from, to time.Time) ([]model.Showtime, error) {
	showtimes, err := m.findShowtimes(ctx, bson.M{}, from, to)
	if err != nil {
		return nil, fmt.Errorf("get showtimes: %w", err)
	}
	return showtimes, nil
}

func (m *MongoDB) GetShowtimesForMovie(ctx context.Context, movieID string, from, to time.Time) ([]model.Showtime, error) {
	showtimes, err := m.findShowtimes(ctx, bson.M{"movie_id": movieID}, from, to)
	if err != nil {
		return nil, fmt.Errorf("get showtimes of movie %s: %w", movieID, err)
	}
	return showtimes, nil
}

func (m *MongoDB) GetShowtimesForTheater(ctx context.Context, theaterID string, from, to time.Time) ([]model.Showtime, error) {
	showtimes, err := m.findShowtimes(ctx, bson.M{"theater_id": theaterID}, from, to)
	if err != nil {
		return nil, fmt.Errorf("get showtimes of theater %s: %w", theaterID, err)
	}
	return showtimes, nil
}

func (m *MongoDB) UpsertShowtime(ctx context.Context, st *model.Showtime) error {
	if _, err := m.GetMovieByID(ctx, st.MovieID); err != nil {
		return fmt.Errorf("upsert showtime %s: %w", st.ID, err)
	}
	if _, err := m.GetTheaterByID(ctx, st.TheaterID); err != nil {
		return fmt.Errorf("upsert showtime %s: %w", st.ID, err)
	}
	return upsertByID(ctx, m.showtimesColl, st.ID, st, "upsert showtime "+st.ID)
}

func (m *MongoDB) DeleteShowtimesBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := m.showtimesColl.DeleteMany(ctx, bson.M{"starts_at": bson.M{"$lt": t}})
	if err != nil {
		return 0, fmt.Errorf("delete old showtimes: %w", err)
	}
	return res.DeletedCount, nil
}

func (m *MongoDB) CreateProfile(ctx context.Context, p *model.Profile) error {
	if _, err := m.profilesColl.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("create profile %s: %w", p.Username, model.ErrAlreadyExists)
		}
		return fmt.Errorf("create profile %s: %w", p.Username, err)
	}
	return nil
}

func (m *MongoDB) GetProfileByID(ctx context.Context, id string) (*model.Profile, error) {
	return findOne[model.Profile](ctx, m.profilesColl, bson.M{"_id": id}, "get profile "+id)
}

func (m *MongoDB) GetProfileByUsername(ctx context.Context, username string) (*model.Profile, error) {
	return findOne[model.Profile](ctx, m.profilesColl, bson.M{"username": username}, "get profile "+username,
		options.FindOne().SetCollation(usernameCollation))
}

// IsUsernameAvailable returns true if the username (case insensitive) is not in use yet
func (m *MongoDB) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	count, err := m.profilesColl.CountDocuments(ctx, bson.M{"username": username}, options.Count().SetCollation(usernameCollation))
	if err != nil {
		return false, fmt.Errorf("check username %s: %w", username, err)
	}
	return count == 0, nil
}

func (m *MongoDB) UpdateProfile(ctx context.Context, p *model.Profile) error {
	res, err := m.profilesColl.UpdateOne(ctx, bson.M{"_id": p.ID}, bson.M{"$set": bson.M{
		"display_name":     p.DisplayName,
		"bio":              p.Bio,
		"avatar_url":       p.AvatarURL,
		"is_admin":         p.IsAdmin,
		"preferred_locale": p.PreferredLocale,
	}})
	if err != nil {
		return fmt.Errorf("update profile %s: %w", p.ID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update profile %s: %w", p.ID, model.ErrNotFound)
	}
	return nil
}

// SetProfilePassword set a new password for a specific user
func (m *MongoDB) SetProfilePassword(ctx context.Context, id, passwordHash string) error {
	res, err := m.profilesColl.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"password_hash": passwordHash}})
	if err != nil {
		return fmt.Errorf("set password of %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("set password of %s: %w", id, model.ErrNotFound)
	}
	return nil
}

func (m *MongoDB) UpsertReview(ctx context.Context, r *model.Review) error {
	if _, err := m.GetMovieByID(ctx, r.MovieID); err != nil {
		return fmt.Errorf("upsert review of %s: %w", r.MovieID, err)
	}
	_, err := m.reviewsColl.UpdateOne(ctx,
		bson.M{"user_id": r.UserID, "movie_id": r.MovieID},
		bson.M{
			"$set":         bson.M{"rating": r.Rating, "body": r.Body, "updated_at": r.UpdatedAt},
			"$setOnInsert": bson.M{"_id": r.ID, "created_at": r.CreatedAt},
		},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert review of %s: %w", r.MovieID, err)
	}
	return nil
}

func (m *MongoDB) DeleteReview(ctx context.Context, userID, movieID string) error {
	res, err := m.reviewsColl.DeleteOne(ctx, bson.M{"user_id": userID, "movie_id": movieID})
	if err != nil {
		return fmt.Errorf("delete review of %s: %w", movieID, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete review of %s: %w", movieID, model.ErrNotFound)
	}
	return nil
}

// findReviews decodes reviews and fills in the username of their authors
func (m *MongoDB) findReviews(ctx context.Context, filter bson.M) ([]model.Review, error) {
	reviews, err := findAll[model.Review](ctx, m.reviewsColl, filter, options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	userIDs := make([]string, 0, len(reviews))
	for _, r := range reviews {
		userIDs = append(userIDs, r.UserID)
	}
	profiles, err := findAll[model.Profile](ctx, m.profilesColl, bson.M{"_id": bson.M{"$in": userIDs}})
	if err != nil {
		return nil, err
	}
	usernames := make(map[string]string, len(profiles))
	for _, p := range profiles {
		usernames[p.ID] = p.Username
	}
	for i := range reviews {
		reviews[i].Username = usernames[reviews[i].UserID]
	}
	return reviews, nil
}

func (m *MongoDB) GetReviewsForMovie(ctx context.Context, movieID string) ([]model.Review, error) {
	reviews, err := m.findReviews(ctx, bson.M{"movie_id": movieID})
	if err != nil {
		return nil, fmt.Errorf("get reviews of movie %s: %w", movieID, err)
	}
	return reviews, nil
}

func (m *MongoDB) GetReviewsByUser(ctx context.Context, userID string) ([]model.Review, error) {
	reviews, err := m.findReviews(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("get reviews of user %s: %w", userID, err)
	}
	return reviews, nil
}

func (m *MongoDB) AddToWatchlist(ctx context.Context, userID, movieID string, at time.Time) error {
	if _, err := m.GetMovieByID(ctx, movieID); err != nil {
		return fmt.Errorf("add %s to watchlist: %w", movieID, err)
	}
	_, err := m.watchlistsColl.UpdateOne(ctx,
		bson.M{"user_id": userID, "movie_id": movieID},
		bson.M{"$setOnInsert": model.WatchlistEntry{UserID: userID, MovieID: movieID, CreatedAt: at}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("add %s to watchlist: %w", movieID, err)
	}
	return nil
}

func (m *MongoDB) RemoveFromWatchlist(ctx context.Context, userID, movieID string) error {
	if _, err := m.watchlistsColl.DeleteOne(ctx, bson.M{"user_id": userID, "movie_id": movieID}); err != nil {
		return fmt.Errorf("remove %s from watchlist: %w", movieID, err)
	}
	return nil
}

func (m *MongoDB) IsInWatchlist(ctx context.Context, userID, movieID string) (bool, error) {
	count, err := m.watchlistsColl.CountDocuments(ctx, bson.M{"user_id": userID, "movie_id": movieID})
	if err != nil {
		return false, fmt.Errorf("check watchlist for %s: %w", movieID, err)
	}
	return count > 0, nil
}

func (m *MongoDB) GetWatchlist(ctx context.Context, userID string) ([]model.Movie, error) {
	entries, err := findAll[model.WatchlistEntry](ctx, m.watchlistsColl, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("get watchlist of %s: %w", userID, err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.MovieID)
	}
	movies, err := findAll[model.Movie](ctx, m.moviesColl, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("get watchlist of %s: %w", userID, err)
	}
	byID := make(map[string]model.Movie, len(movies))
	for _, movie := range movies {
		byID[movie.ID] = movie
	}
	var ordered []model.Movie
	for _, id := range ids {
		if movie, ok := byID[id]; ok {
			ordered = append(ordered, movie)
		}
	}
	return ordered, nil
}

func (m *MongoDB) SaveToken(ctx context.Context, t *model.Token) error {
	return upsertByID(ctx, m.tokensColl, t.AccessCode, t, "save token")
}

func (m *MongoDB) GetToken(ctx context.Context, accessCode string) (*model.Token, error) {
	return findOne[model.Token](ctx, m.tokensColl, bson.M{"_id": accessCode}, "get token")
}

func (m *MongoDB) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := m.tokensColl.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now}})
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return res.DeletedCount, nil
}

func (m *MongoDB) AddLog(ctx context.Context, entry *model.LogEntry) error {
	if _, err := m.logsColl.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("add log: %w", err)
	}
	return nil
}

func (m *MongoDB) GetLogs(ctx context.Context, source string, since time.Time, limit int) ([]model.LogEntry, error) {
	filter := bson.M{"created_at": bson.M{"$gte": since}}
	if source != "" {
		filter["source"] = source
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit))
	entries, err := findAll[model.LogEntry](ctx, m.logsColl, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("get logs: %w", err)
	}
	return entries, nil
}

func (m *MongoDB) CountLogs(ctx context.Context, source string, since time.Time) (map[string]int, error) {
	match := bson.M{"created_at": bson.M{"$gte": since}}
	if source != "" {
		match["source"] = source
	}
	cursor, err := m.logsColl.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": "$level", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("count logs: %w", err)
	}
	var groups []struct {
		Level string `bson:"_id"`
		Count int    `bson:"count"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("count logs: %w", err)
	}
	counts := make(map[string]int, len(groups))
	for _, g := range groups {
		counts[g.Level] = g.Count
	}
	return counts, nil
}

// ExecScript is not available on a document store
func (m *MongoDB) ExecScript(_ context.Context, name, _ string) error {
	return fmt.Errorf("apply %s: %w", name, model.ErrUnsupported)
}

func (m *MongoDB) GetAppliedMigrations(context.Context) (map[string]time.Time, error) {
	return map[string]time.Time{}, nil
}

// DescribeSchema infers the fields of collections from a sample of their documents
func (m *MongoDB) DescribeSchema(ctx context.Context, table string) ([]model.TableSchema, error) {
	names, err := m.db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	sort.Strings(names)
	if table != "" {
		idx := sort.SearchStrings(names, table)
		if idx == len(names) || names[idx] != table {
			return nil, fmt.Errorf("describe collection %s: %w", table, model.ErrNotFound)
		}
		names = []string{table}
	}

	schemas := make([]model.TableSchema, 0, len(names))
	for _, name := range names {
		columns, err := m.sampleFields(ctx, m.db.Collection(name))
		if err != nil {
			return nil, fmt.Errorf("sample collection %s: %w", name, err)
		}
		schemas = append(schemas, model.TableSchema{Name: name, Columns: columns})
	}
	return schemas, nil
}

func (m *MongoDB) sampleFields(ctx context.Context, coll *mongo.Collection) ([]model.ColumnInfo, error) {
	cur, err := coll.Find(ctx, bson.M{}, options.Find().SetLimit(schemaSampleSize))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var (
		columns []model.ColumnInfo
		seen    = make(map[string]bool)
	)
	for cur.Next(ctx) {
		elements, err := cur.Current.Elements()
		if err != nil {
			return nil, err
		}
		for _, e := range elements {
			if seen[e.Key()] {
				continue
			}
			seen[e.Key()] = true
			columns = append(columns, model.ColumnInfo{
				Name:       e.Key(),
				Type:       e.Value().Type.String(),
				NotNull:    e.Key() == "_id",
				PrimaryKey: e.Key() == "_id",
			})
		}
	}
	return columns, cur.Err()
}
