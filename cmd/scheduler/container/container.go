package container

import (
	"github.com/planfab/scheduler/cmd/scheduler/repository"
	"github.com/planfab/scheduler/cmd/scheduler/service"
	"github.com/planfab/scheduler/common/bootstrap"
)

// Container holds all initialized repositories and services. Built once
// at process start and injected into handlers; no global mutable state.
type Container struct {
	Components *bootstrap.Components

	// Repositories
	VersionRepo          *repository.VersionRepository
	OperationRepo        *repository.OperationRepository
	OperationVersionRepo *repository.OperationVersionRepository
	ComparisonRepo       *repository.ComparisonRepository
	LockRepo             *repository.LockRepository
	RollbackRepo         *repository.RollbackRepository

	// Services
	SnapshotService   *service.SnapshotService
	VersionService    *service.VersionService
	ComparatorService *service.ComparatorService
	LockService       *service.LockService
	RollbackService   *service.RollbackService
	ChangeTracker     *service.ChangeTracker
	LockSweeper       *service.LockSweeper
}

// NewContainer initializes all repositories and services once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	versionRepo := repository.NewVersionRepository(components.DB)
	operationRepo := repository.NewOperationRepository(components.DB)
	operationVersionRepo := repository.NewOperationVersionRepository(components.DB)
	comparisonRepo := repository.NewComparisonRepository(components.DB)
	lockRepo := repository.NewLockRepository(components.DB)
	rollbackRepo := repository.NewRollbackRepository(components.DB)

	snapshotService := service.NewSnapshotService(operationRepo, components.Logger)

	versionService := service.NewVersionService(
		components.DB,
		versionRepo,
		snapshotService,
		components.Queue,
		components.Redis,
		components.Cache,
		components.Config,
		components.Logger,
	)

	comparatorService := service.NewComparatorService(versionService, comparisonRepo, components.Logger)

	lockService := service.NewLockService(
		components.DB,
		lockRepo,
		versionService,
		components.Config,
		components.Logger,
	)

	policy, err := service.NewApprovalPolicy(components.Config.Versioning.RollbackApprovalPolicy)
	if err != nil {
		return nil, err
	}

	rollbackService := service.NewRollbackService(
		versionService,
		operationRepo,
		rollbackRepo,
		policy,
		components.Logger,
	)

	changeTracker := service.NewChangeTracker(
		versionRepo,
		operationVersionRepo,
		components.Queue,
		components.Logger,
	)

	lockSweeper := service.NewLockSweeper(
		lockService,
		components.Redis,
		components.Config,
		components.Logger,
	)

	return &Container{
		Components:           components,
		VersionRepo:          versionRepo,
		OperationRepo:        operationRepo,
		OperationVersionRepo: operationVersionRepo,
		ComparisonRepo:       comparisonRepo,
		LockRepo:             lockRepo,
		RollbackRepo:         rollbackRepo,
		SnapshotService:      snapshotService,
		VersionService:       versionService,
		ComparatorService:    comparatorService,
		LockService:          lockService,
		RollbackService:      rollbackService,
		ChangeTracker:        changeTracker,
		LockSweeper:          lockSweeper,
	}, nil
}
