// Package publish orchestrates the full release pipeline from project metadata to index upload.
package publish

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pypub/pypub/internal/artifacts"
	"github.com/pypub/pypub/internal/credentials"
	"github.com/pypub/pypub/internal/distbuild"
	"github.com/pypub/pypub/internal/distupload"
	"github.com/pypub/pypub/internal/pypirc"
	"github.com/pypub/pypub/internal/pyproject"
)

const (
	builderNotConfiguredMessageConstant  = "publish service requires a distribution builder"
	uploaderNotConfiguredMessageConstant = "publish service requires a distribution uploader"
	resolverNotConfiguredMessageConstant = "publish service requires a credential resolver"
	credentialResolutionTemplateConstant = "unable to resolve publisher credentials: %w"
	publishPlannedMessageConstant        = "publish planned"
	publishCompletedMessageConstant      = "publish completed"
	credentialCleanupWarningConstant     = "unable to remove transient credential file"
	logFieldProjectNameConstant          = "project"
	logFieldProjectVersionConstant       = "version"
	logFieldRepositoryURLConstant        = "repository_url"
	logFieldArtifactCountConstant        = "artifact_count"
)

// Service errors reported during construction.
var (
	ErrBuilderNotConfigured  = errors.New(builderNotConfiguredMessageConstant)
	ErrUploaderNotConfigured = errors.New(uploaderNotConfiguredMessageConstant)
	ErrResolverNotConfigured = errors.New(resolverNotConfiguredMessageConstant)
)

// DistributionBuilder produces source and wheel distributions.
type DistributionBuilder interface {
	Build(executionContext context.Context, options distbuild.Options) (pyproject.Descriptor, error)
}

// DistributionUploader transfers distributions to a package index.
type DistributionUploader interface {
	Upload(executionContext context.Context, options distupload.Options) error
}

// ReleaseNotifier announces completed publishes.
type ReleaseNotifier interface {
	NotifyPublished(projectName string, projectVersion string, repositoryURL string, artifactCount int)
}

// ArtifactCollector inventories a distribution directory.
type ArtifactCollector func(distDirectory string) ([]artifacts.Artifact, error)

// ScopedCredentialWriter renders credentials into a transient file and returns its path with a cleanup function.
type ScopedCredentialWriter func(registryCredentials pypirc.Credentials) (string, func() error, error)

// ServiceDependencies aggregates the collaborators required by the publish service.
type ServiceDependencies struct {
	Logger                 *zap.Logger
	Builder                DistributionBuilder
	Uploader               DistributionUploader
	CredentialResolver     credentials.Resolver
	ArtifactCollector      ArtifactCollector
	ScopedCredentialWriter ScopedCredentialWriter
	Notifier               ReleaseNotifier
}

// Service runs the publish pipeline.
type Service struct {
	logger                 *zap.Logger
	builder                DistributionBuilder
	uploader               DistributionUploader
	credentialResolver     credentials.Resolver
	artifactCollector      ArtifactCollector
	scopedCredentialWriter ScopedCredentialWriter
	notifier               ReleaseNotifier
}

// NewService validates the dependencies and constructs a publish service.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Builder == nil {
		return nil, ErrBuilderNotConfigured
	}
	if dependencies.Uploader == nil {
		return nil, ErrUploaderNotConfigured
	}
	if dependencies.CredentialResolver == nil {
		return nil, ErrResolverNotConfigured
	}

	resolvedLogger := dependencies.Logger
	if resolvedLogger == nil {
		resolvedLogger = zap.NewNop()
	}

	artifactCollector := dependencies.ArtifactCollector
	if artifactCollector == nil {
		artifactCollector = artifacts.Collect
	}

	scopedCredentialWriter := dependencies.ScopedCredentialWriter
	if scopedCredentialWriter == nil {
		scopedCredentialWriter = pypirc.WriteScoped
	}

	return &Service{
		logger:                 resolvedLogger,
		builder:                dependencies.Builder,
		uploader:               dependencies.Uploader,
		credentialResolver:     dependencies.CredentialResolver,
		artifactCollector:      artifactCollector,
		scopedCredentialWriter: scopedCredentialWriter,
		notifier:               dependencies.Notifier,
	}, nil
}

// Options configures one publish invocation.
type Options struct {
	Configuration Configuration
	Credentials   credentials.Configuration
	DryRun        bool
	SkipBuild     bool
}

// Result summarizes a completed publish.
type Result struct {
	ProjectName    string
	ProjectVersion string
	Artifacts      []artifacts.Artifact
}

// Publish resolves credentials, builds both distribution formats, and uploads them
// through a transient registry-configuration file that is removed afterwards.
func (service *Service) Publish(executionContext context.Context, options Options) (Result, error) {
	pipelineConfiguration := options.Configuration.Sanitize()
	credentialsConfiguration := options.Credentials.Sanitize()

	publisherCredentials, resolutionError := credentials.ResolvePublisherCredentials(
		executionContext,
		service.credentialResolver,
		credentialsConfiguration.UsernameSource,
		credentialsConfiguration.PasswordSource,
	)
	if resolutionError != nil {
		return Result{}, fmt.Errorf(credentialResolutionTemplateConstant, resolutionError)
	}

	buildOptions := distbuild.Options{
		ProjectDirectory: pipelineConfiguration.ProjectDirectory,
		DistDirectory:    pipelineConfiguration.DistDirectory,
		DryRun:           options.DryRun || options.SkipBuild,
	}
	descriptor, buildError := service.builder.Build(executionContext, buildOptions)
	if buildError != nil {
		return Result{}, buildError
	}

	if options.DryRun {
		service.logger.Info(
			publishPlannedMessageConstant,
			zap.String(logFieldProjectNameConstant, descriptor.Project.Name),
			zap.String(logFieldProjectVersionConstant, descriptor.VersionLabel()),
			zap.String(logFieldRepositoryURLConstant, pipelineConfiguration.RepositoryURL),
		)
		return Result{ProjectName: descriptor.Project.Name, ProjectVersion: descriptor.VersionLabel()}, nil
	}

	collectedArtifacts, collectError := service.artifactCollector(pipelineConfiguration.DistDirectory)
	if collectError != nil {
		return Result{}, collectError
	}
	if publishableError := artifacts.EnsurePublishable(collectedArtifacts); publishableError != nil {
		return Result{}, publishableError
	}

	configurationFilePath, cleanupCredentialFile, writeError := service.scopedCredentialWriter(pypirc.Credentials{
		RepositoryURL: pipelineConfiguration.RepositoryURL,
		Username:      publisherCredentials.Username,
		Password:      publisherCredentials.Password,
	})
	if writeError != nil {
		return Result{}, writeError
	}
	defer func() {
		if cleanupError := cleanupCredentialFile(); cleanupError != nil {
			service.logger.Warn(credentialCleanupWarningConstant, zap.Error(cleanupError))
		}
	}()

	uploadOptions := distupload.Options{
		ConfigurationFilePath: configurationFilePath,
		RepositoryName:        pypirc.DefaultIndexName,
		SkipExisting:          pipelineConfiguration.SkipExisting,
		ArtifactPaths:         artifacts.Paths(collectedArtifacts),
	}
	if uploadError := service.uploader.Upload(executionContext, uploadOptions); uploadError != nil {
		return Result{}, uploadError
	}

	if service.notifier != nil {
		service.notifier.NotifyPublished(
			descriptor.Project.Name,
			descriptor.VersionLabel(),
			pipelineConfiguration.RepositoryURL,
			len(collectedArtifacts),
		)
	}

	service.logger.Info(
		publishCompletedMessageConstant,
		zap.String(logFieldProjectNameConstant, descriptor.Project.Name),
		zap.String(logFieldProjectVersionConstant, descriptor.VersionLabel()),
		zap.String(logFieldRepositoryURLConstant, pipelineConfiguration.RepositoryURL),
		zap.Int(logFieldArtifactCountConstant, len(collectedArtifacts)),
	)

	return Result{
		ProjectName:    descriptor.Project.Name,
		ProjectVersion: descriptor.VersionLabel(),
		Artifacts:      collectedArtifacts,
	}, nil
}
