// Package businessflow contains use cases for shopper-facing variant assignment
package businessflow

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopmorph/Kaleido/app/dto"
	"github.com/shopmorph/Kaleido/config"
	"github.com/shopmorph/Kaleido/models"
	"github.com/shopmorph/Kaleido/repository"
)

// AssignmentFlow decides which case a session sees for a product
type AssignmentFlow interface {
	GetAssignment(ctx context.Context, req *dto.AssignmentRequest, metadata *ClientMetadata) (*dto.AssignmentResponse, error)
}

type AssignmentFlowImpl struct {
	testRepo    repository.ImageTestRepository
	rc          *redis.Client
	cacheConfig *config.CacheConfig
}

func NewAssignmentFlow(
	testRepo repository.ImageTestRepository,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
) AssignmentFlow {
	return &AssignmentFlowImpl{
		testRepo:    testRepo,
		rc:          rc,
		cacheConfig: cacheConfig,
	}
}

// GetAssignment resolves the ACTIVE test for the product and buckets the
// session. Unknown or malformed product ids produce the "no test" signal,
// never an error: the storefront must keep rendering its defaults.
func (f *AssignmentFlowImpl) GetAssignment(ctx context.Context, req *dto.AssignmentRequest, metadata *ClientMetadata) (*dto.AssignmentResponse, error) {
	if req.ProductID == "" || req.SessionID == "" {
		return dto.NoActiveTestResponse(), nil
	}

	test, err := f.resolveActiveTest(ctx, req.ProductID)
	if err != nil {
		return nil, NewBusinessError("GET_ASSIGNMENT_FAILED", "Failed to resolve active test", err)
	}
	if test == nil {
		return dto.NoActiveTestResponse(), nil
	}

	assignedCase := BucketCase(req.SessionID, test.UUID.String(), test.TrafficSplit, test.CurrentCase)

	// Manual verification override
	if models.IsValidCase(req.Force) {
		assignedCase = req.Force
	}

	return &dto.AssignmentResponse{
		Active:   true,
		TestID:   test.UUID.String(),
		Case:     assignedCase,
		Images:   test.ImagesForCase(assignedCase),
		TenantID: test.TenantID,
	}, nil
}

// resolveActiveTest consults the redis cache before the database. Cache
// failures are soft: the lookup falls through to the repository.
func (f *AssignmentFlowImpl) resolveActiveTest(ctx context.Context, productID string) (*models.ImageTest, error) {
	cacheEnabled := f.rc != nil && f.cacheConfig != nil && f.cacheConfig.Enabled
	var cacheKey string

	if cacheEnabled {
		cacheKey = redisKey(*f.cacheConfig, "active_test:"+productID)
		if bs, err := f.rc.Get(ctx, cacheKey).Bytes(); err == nil && len(bs) > 0 {
			var cached models.ImageTest
			if err := json.Unmarshal(bs, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	test, err := f.testRepo.ActiveByProductID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if test == nil {
		return nil, nil
	}

	if cacheEnabled {
		ttl := f.cacheConfig.DefaultTTL
		if ttl <= 0 {
			ttl = time.Minute
		}
		if bs, err := json.Marshal(test); err == nil {
			if err := f.rc.Set(ctx, cacheKey, bs, ttl).Err(); err != nil {
				log.Printf("assignment: cache set failed for product %s: %v", productID, err)
			}
		}
	}

	return test, nil
}

// BucketCase deterministically buckets a session for a test. Sessions whose
// hash falls under the traffic split are assigned the TEST arm; everyone else
// sees the control arm, which is the test's rotating current case.
func BucketCase(sessionID, testUUID string, trafficSplit int, controlCase string) string {
	if trafficSplit <= 0 {
		return controlCase
	}
	if trafficSplit >= 100 {
		return models.CaseTest
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID + ":" + testUUID))
	if int(h.Sum32()%100) < trafficSplit {
		return models.CaseTest
	}
	return controlCase
}
