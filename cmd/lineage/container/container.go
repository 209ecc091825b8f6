package container

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/qefaraki/lineage/cmd/lineage/service"
	"github.com/qefaraki/lineage/common/bootstrap"
	"github.com/qefaraki/lineage/common/notify"
	"github.com/qefaraki/lineage/common/ratelimit"
	rediscommon "github.com/qefaraki/lineage/common/redis"
	"github.com/qefaraki/lineage/common/repository"
)

// Container holds all initialized services and repositories (singleton pattern)
type Container struct {
	Components *bootstrap.Components
	Redis      *rediscommon.Client
	RedisRaw   *goredis.Client
	Limiter    *ratelimit.Limiter

	// Repositories
	PersonRepo     *repository.PersonRepository
	MutationRepo   *repository.MutationRepository
	MarriageRepo   *repository.MarriageRepository
	GrantRepo      *repository.GrantRepository
	SuggestionRepo *repository.SuggestionRepository
	AuditRepo      *repository.AuditRepository

	// Services
	RelationshipService *service.RelationshipService
	PermissionService   *service.PermissionService
	MutationService     *service.MutationService
	PersonService       *service.PersonService
	SuggestionService   *service.SuggestionService
	AuditService        *service.AuditService
	AdminService        *service.AdminService
	IntegrityService    *service.IntegrityService
}

// NewContainer initializes all services and repositories once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	redisRaw := rediscommon.NewFromConfig(components.Config)
	redisClient := rediscommon.NewClient(redisRaw, components.Logger)
	limiter := ratelimit.NewLimiter(redisRaw, components.Logger)
	dispatcher := notify.NewRedisDispatcher(redisClient, "lineage.events", components.Logger)

	// Repositories
	personRepo := repository.NewPersonRepository(components.DB)
	mutationRepo := repository.NewMutationRepository(components.DB)
	marriageRepo := repository.NewMarriageRepository(components.DB)
	grantRepo := repository.NewGrantRepository(components.DB)
	suggestionRepo := repository.NewSuggestionRepository(components.DB)
	auditRepo := repository.NewAuditRepository(components.DB)

	// Services (bottom-up: dependencies first)
	relationshipService := service.NewRelationshipService(personRepo, marriageRepo, components.Cache, components.Logger)

	policy, err := service.NewPolicy(components.Config.Permission.Policy)
	if err != nil {
		return nil, fmt.Errorf("failed to compile permission policy: %w", err)
	}
	permissionService := service.NewPermissionService(personRepo, relationshipService, grantRepo, policy, components.Logger)

	mutationService := service.NewMutationService(mutationRepo, personRepo, permissionService, relationshipService, components.Queue, components.Logger)
	personService := service.NewPersonService(personRepo, marriageRepo, relationshipService, permissionService, components.Queue, components.Logger)
	suggestionService := service.NewSuggestionService(suggestionRepo, personRepo, mutationService, permissionService, dispatcher, components.Logger)
	auditService := service.NewAuditService(auditRepo, mutationService, permissionService, dispatcher, components.Logger)
	adminService := service.NewAdminService(personRepo, grantRepo, permissionService, components.Logger)
	integrityService := service.NewIntegrityService(personRepo, components.Logger)

	return &Container{
		Components: components,
		Redis:      redisClient,
		RedisRaw:   redisRaw,
		Limiter:    limiter,

		PersonRepo:     personRepo,
		MutationRepo:   mutationRepo,
		MarriageRepo:   marriageRepo,
		GrantRepo:      grantRepo,
		SuggestionRepo: suggestionRepo,
		AuditRepo:      auditRepo,

		RelationshipService: relationshipService,
		PermissionService:   permissionService,
		MutationService:     mutationService,
		PersonService:       personService,
		SuggestionService:   suggestionService,
		AuditService:        auditService,
		AdminService:        adminService,
		IntegrityService:    integrityService,
	}, nil
}

// Close releases container-owned resources not managed by bootstrap
func (c *Container) Close() error {
	return c.RedisRaw.Close()
}
