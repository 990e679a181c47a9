// Package seed builds and loads the demo pipeline used in development.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dealflow/dealflow-api/internal/database"
	"github.com/dealflow/dealflow-api/internal/deal"
	"github.com/dealflow/dealflow-api/internal/models"
	"github.com/dealflow/dealflow-api/internal/stage"
	"github.com/dealflow/dealflow-api/internal/stage/repository"
)

// DemoQuota is the annual target stored for the current year.
const DemoQuota = 500000

// Dataset is a self-consistent demo pipeline owned by one rep.
type Dataset struct {
	Owner      primitive.ObjectID
	Stages     []stage.Stage
	Deals      []models.Deal
	Activities []models.Activity
	Contacts   []models.Contact
	Quota      models.Quota
}

// DefaultStages mirrors the deal stage enumeration in the registry.
func DefaultStages(now time.Time) []stage.Stage {
	out := make([]stage.Stage, 0, len(models.DealStages))
	for i, name := range models.DealStages {
		p, _ := deal.DefaultProbability(name)
		typ := stage.TypeOpen
		switch name {
		case models.StageClosedWon:
			typ = stage.TypeWon
		case models.StageClosedLost:
			typ = stage.TypeLost
		}
		out = append(out, stage.Stage{Name: name, Probability: p, Type: typ, Order: i, CreatedAt: now, UpdatedAt: now})
	}
	return out
}

// Demo builds the six-deal pipeline plus contacts, activities and a quota,
// with dates placed around now.
func Demo(owner primitive.ObjectID, now time.Time) Dataset {
	now = now.UTC()
	ds := Dataset{Owner: owner, Stages: DefaultStages(now)}

	for _, name := range []string{"Ada Byrne", "Tomas Varga", "Mei Lin"} {
		ds.Contacts = append(ds.Contacts, models.Contact{ID: primitive.NewObjectID(), Name: name, OwnerID: owner, CreatedAt: now.AddDate(0, -3, 0)})
	}

	deals := []struct {
		title  string
		stage  string
		amount float64
		prob   int
	}{
		{"Acme onboarding", models.StageLead, 45000, 20},
		{"Globex pilot", models.StageLead, 28000, 25},
		{"Initech rollout", models.StageQualified, 75000, 40},
		{"Umbrella platform", models.StageProposal, 250000, 70},
		{"Hooli expansion", models.StageNegotiation, 180000, 85},
		{"Stark renewal", models.StageClosedWon, 35000, 100},
	}
	for i, d := range deals {
		created := now.AddDate(0, -4, i*7)
		closeDate := now.AddDate(0, 1+i%3, 0)
		contact := ds.Contacts[i%len(ds.Contacts)].ID
		m := models.Deal{
			ID:          primitive.NewObjectID(),
			Title:       d.title,
			Amount:      d.amount,
			Stage:       d.stage,
			Probability: d.prob,
			OwnerID:     owner,
			ContactID:   &contact,
			CloseDate:   &closeDate,
			CreatedAt:   created,
			UpdatedAt:   created,
		}
		if d.stage == models.StageClosedWon {
			closed := now.AddDate(0, -1, 0)
			m.ClosedAt = &closed
			m.CloseDate = &closed
		}
		ds.Deals = append(ds.Deals, m)
	}

	acts := []struct {
		title    string
		typ      string
		status   string
		priority string
		due      time.Duration
	}{
		{"Discovery call with Acme", models.ActivityCall, models.StatusOpen, models.PriorityHigh, -48 * time.Hour},
		{"Send Globex pricing", models.ActivityEmail, models.StatusOpen, models.PriorityMedium, 24 * time.Hour},
		{"Umbrella proposal review", models.ActivityMeeting, models.StatusOpen, models.PriorityHigh, 72 * time.Hour},
		{"Prepare Hooli contract", models.ActivityTask, models.StatusOpen, models.PriorityMedium, 5 * 24 * time.Hour},
		{"Stark renewal kickoff", models.ActivityMeeting, models.StatusCompleted, models.PriorityLow, -10 * 24 * time.Hour},
		{"Initech follow-up", models.ActivityEmail, models.StatusCanceled, models.PriorityLow, -24 * time.Hour},
	}
	for _, a := range acts {
		ds.Activities = append(ds.Activities, models.Activity{
			ID:        primitive.NewObjectID(),
			Title:     a.title,
			Type:      a.typ,
			Status:    a.status,
			Priority:  a.priority,
			DueAt:     now.Add(a.due),
			OwnerID:   owner,
			CreatedAt: now.AddDate(0, 0, -14),
		})
	}

	ds.Quota = models.Quota{Year: now.Year(), Target: DemoQuota}
	return ds
}

// LoadMemory inserts ds into the in-memory store. Stages already present by
// name are left alone.
func LoadMemory(ctx context.Context, db *database.MemoryDB, stages repository.Repository, ds Dataset) error {
	for i := range ds.Stages {
		st := ds.Stages[i]
		if _, err := stages.FindByName(ctx, st.Name); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if err := stages.Create(ctx, &st); err != nil {
			return fmt.Errorf("create stage %q: %w", st.Name, err)
		}
	}
	for _, c := range ds.Contacts {
		db.InsertContact(c)
	}
	for _, d := range ds.Deals {
		db.InsertDeal(d)
	}
	for _, a := range ds.Activities {
		db.InsertActivity(a)
	}
	db.PutQuota(ds.Quota)
	return nil
}

// LoadMongo replaces the owner's deals, activities and contacts with ds,
// upserts the quota for its year and adds missing stages.
func LoadMongo(ctx context.Context, db *mongo.Database, ds Dataset) error {
	byOwner := bson.M{"ownerId": ds.Owner}
	for _, coll := range []string{database.DealsCollection, database.ActivitiesCollection, database.ContactsCollection} {
		if _, err := db.Collection(coll).DeleteMany(ctx, byOwner); err != nil {
			return fmt.Errorf("clear %s: %w", coll, err)
		}
	}

	stageWrites := make([]mongo.WriteModel, 0, len(ds.Stages))
	for _, st := range ds.Stages {
		stageWrites = append(stageWrites, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"name": st.Name}).
			SetUpdate(bson.M{"$setOnInsert": st}).
			SetUpsert(true))
	}
	if _, err := db.Collection(database.StagesCollection).BulkWrite(ctx, stageWrites, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("seed stages: %w", err)
	}

	docs := map[string][]interface{}{}
	for _, c := range ds.Contacts {
		docs[database.ContactsCollection] = append(docs[database.ContactsCollection], c)
	}
	for _, d := range ds.Deals {
		docs[database.DealsCollection] = append(docs[database.DealsCollection], d)
	}
	for _, a := range ds.Activities {
		docs[database.ActivitiesCollection] = append(docs[database.ActivitiesCollection], a)
	}
	for coll, batch := range docs {
		if _, err := db.Collection(coll).InsertMany(ctx, batch); err != nil {
			return fmt.Errorf("seed %s: %w", coll, err)
		}
	}

	_, err := db.Collection(database.QuotasCollection).UpdateOne(ctx,
		bson.M{"year": ds.Quota.Year},
		bson.M{"$set": bson.M{"target": ds.Quota.Target}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("seed quota: %w", err)
	}
	return nil
}
