package secret

import (
	"context"
	"errors"
	"testing"

	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSM struct {
	data map[string]string
	last string
}

func (f *fakeSM) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.last = req.GetName()
	v, ok := f.data[req.GetName()]
	if !ok {
		return nil, errors.New("not found")
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(v)},
	}, nil
}

func TestAccessor_ResourceName(t *testing.T) {
	a := &Accessor{projectID: "shop"}

	tests := map[string]string{
		"sendgrid-key":                        "projects/shop/secrets/sendgrid-key/versions/latest",
		"sendgrid-key:3":                      "projects/shop/secrets/sendgrid-key/versions/3",
		"projects/other/secrets/k":            "projects/other/secrets/k/versions/latest",
		"projects/other/secrets/k/versions/7": "projects/other/secrets/k/versions/7",
	}
	for in, want := range tests {
		got, err := a.ResourceName(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := a.ResourceName(" ")
	assert.Error(t, err)
	_, err = (&Accessor{}).ResourceName("k")
	assert.Error(t, err)
}

func TestAccessor_Access(t *testing.T) {
	sm := &fakeSM{data: map[string]string{
		"projects/shop/secrets/sendgrid-key/versions/latest": " SG.xxx \n",
	}}
	a := &Accessor{sm: sm, projectID: "shop"}

	v, err := a.Access(context.Background(), "sendgrid-key")
	require.NoError(t, err)
	assert.Equal(t, "SG.xxx", v)

	_, err = a.Access(context.Background(), "missing")
	assert.Error(t, err)

	_, err = NewAccessor(nil, "shop").Access(context.Background(), "sendgrid-key")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
