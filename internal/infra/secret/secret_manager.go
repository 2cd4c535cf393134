// internal/infra/secret/secret_manager.go
package secret

import (
	"context"
	"errors"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
)

var ErrNotConfigured = errors.New("secret: accessor not configured")

// versionAccessor is the slice of *secretmanager.Client used here.
type versionAccessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

// Accessor reads secret payloads from Secret Manager.
type Accessor struct {
	sm        versionAccessor
	projectID string
}

func NewAccessor(sm *secretmanager.Client, projectID string) *Accessor {
	if sm == nil {
		return &Accessor{projectID: strings.TrimSpace(projectID)}
	}
	return &Accessor{sm: sm, projectID: strings.TrimSpace(projectID)}
}

// ResourceName resolves ref to "projects/<p>/secrets/<id>/versions/<v>".
//
// ref may be a full resource name, "<id>" or "<id>:<version>"; the version
// defaults to latest.
func (a *Accessor) ResourceName(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("secret: ref is empty")
	}
	if strings.HasPrefix(ref, "projects/") {
		if !strings.Contains(ref, "/versions/") {
			ref += "/versions/latest"
		}
		return ref, nil
	}

	id, ver, _ := strings.Cut(ref, ":")
	ver = strings.TrimSpace(ver)
	if ver == "" {
		ver = "latest"
	}
	if a.projectID == "" {
		return "", errors.New("secret: projectID is empty")
	}
	return "projects/" + a.projectID + "/secrets/" + strings.TrimSpace(id) + "/versions/" + ver, nil
}

// Access returns the trimmed payload of ref.
func (a *Accessor) Access(ctx context.Context, ref string) (string, error) {
	if a == nil || a.sm == nil {
		return "", ErrNotConfigured
	}
	name, err := a.ResourceName(ref)
	if err != nil {
		return "", err
	}

	resp, err := a.sm.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("secret: AccessSecretVersion failed (%s): %w", name, err)
	}
	if resp == nil || resp.Payload == nil {
		return "", fmt.Errorf("secret: empty payload (%s)", name)
	}
	return strings.TrimSpace(string(resp.Payload.Data)), nil
}
