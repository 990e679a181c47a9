package analytics

import (
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/dealflow/dealflow-api/internal/models"
	"github.com/dealflow/dealflow-api/internal/scope"
)

// liveMatch is the base filter for every read: not soft-deleted, within scope.
func liveMatch(sc scope.Scope) bson.M {
	m := bson.M{"deletedAt": nil}
	if sc.Restricted() {
		m["ownerId"] = *sc.OwnerID
	}
	return m
}

func rangeCond(from, to *time.Time) bson.M {
	cond := bson.M{}
	if from != nil {
		cond["$gte"] = *from
	}
	if to != nil {
		cond["$lte"] = *to
	}
	return cond
}

func dealStageMatch(f DealFilter) bson.M {
	m := liveMatch(f.Scope)
	if c := rangeCond(f.CreatedFrom, f.CreatedTo); len(c) > 0 {
		m["createdAt"] = c
	}
	if f.Title != "" {
		m["title"] = bson.M{"$regex": regexp.QuoteMeta(f.Title), "$options": "i"}
	}
	return m
}

func stageGroupPipeline(f DealFilter) []bson.M {
	return []bson.M{
		{"$match": dealStageMatch(f)},
		{"$group": bson.M{
			"_id":            "$stage",
			"count":          bson.M{"$sum": 1},
			"totalValue":     bson.M{"$sum": "$amount"},
			"sumProbability": bson.M{"$sum": "$probability"},
			"weightedSum":    bson.M{"$sum": bson.M{"$multiply": bson.A{"$amount", "$probability"}}},
		}},
	}
}

func activityMatch(f ActivityFilter) bson.M {
	m := liveMatch(f.Scope)
	if c := rangeCond(f.DueFrom, f.DueTo); len(c) > 0 {
		m["dueAt"] = c
	}
	return m
}

func activityGroupPipeline(f ActivityFilter, now time.Time) []bson.M {
	return []bson.M{
		{"$match": activityMatch(f)},
		{"$group": bson.M{
			"_id": bson.M{
				"type":     "$type",
				"priority": "$priority",
				"status":   "$status",
				"overdue": bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$status", models.StatusOpen}},
					bson.M{"$lt": bson.A{"$dueAt", now}},
				}},
			},
			"count": bson.M{"$sum": 1},
		}},
	}
}

func monthExpr(field interface{}, f TrendFilter) bson.M {
	return bson.M{"$dateToString": bson.M{"format": "%Y-%m", "date": field, "timezone": f.Location.String()}}
}

func wonMonthlyPipeline(f TrendFilter) []bson.M {
	match := liveMatch(f.Scope)
	match["stage"] = models.StageClosedWon
	match["closedAt"] = bson.M{"$gte": f.Start, "$lte": f.End}
	return []bson.M{
		{"$match": match},
		{"$group": bson.M{
			"_id":   monthExpr("$closedAt", f),
			"total": bson.M{"$sum": "$amount"},
		}},
	}
}

func forecastMonthlyPipeline(f TrendFilter) []bson.M {
	match := liveMatch(f.Scope)
	match["stage"] = bson.M{"$ne": models.StageClosedWon}
	return []bson.M{
		{"$match": match},
		{"$addFields": bson.M{"bucketDate": bson.M{"$ifNull": bson.A{"$closeDate", "$createdAt"}}}},
		{"$match": bson.M{"bucketDate": bson.M{"$gte": f.Start, "$lte": f.End}}},
		{"$group": bson.M{
			"_id": monthExpr("$bucketDate", f),
			"total": bson.M{"$sum": bson.M{"$multiply": bson.A{
				"$amount",
				bson.M{"$divide": bson.A{"$probability", 100}},
			}}},
		}},
	}
}
