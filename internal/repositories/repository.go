package repositories

import "context"

// Repository aggregates every repository the service uses
type Repository interface {
	// Assessment domain
	Assessment() AssessmentRepository
	Question() QuestionRepository

	// Distribution
	Assignment() AssignmentRepository

	// Attempt lifecycle
	Progress() ProgressRepository
	Result() ResultRepository

	// Organisation (local mirror of the identity provider)
	User() UserRepository
	Department() DepartmentRepository

	// External identity directory
	Directory() IdentityDirectory

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
