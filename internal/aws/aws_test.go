package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdentity struct {
	arn string
	err error
}

func (f *fakeIdentity) GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &sts.GetCallerIdentityOutput{Arn: aws.String(f.arn)}, nil
}

func TestGetProfile(t *testing.T) {
	t.Setenv("AWS_PROFILE", "")
	assert.Equal(t, "default", getProfile())

	t.Setenv("AWS_PROFILE", "bridge")
	assert.Equal(t, "bridge", getProfile())
}

func TestNewKMSClient(t *testing.T) {
	client := NewKMSClient(aws.Config{Region: "us-east-1"})
	assert.NotNil(t, client)
	assert.Equal(t, "us-east-1", client.Options().Region)
}

func TestGetCallerIdentity(t *testing.T) {
	out, err := GetCallerIdentity(context.Background(), &fakeIdentity{arn: "arn:aws:iam::123456789012:role/deposit-sender"})
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:iam::123456789012:role/deposit-sender", aws.ToString(out.Arn))

	_, err = GetCallerIdentity(context.Background(), &fakeIdentity{err: errors.New("expired token")})
	require.ErrorContains(t, err, "failed to get caller identity: expired token")

	_, err = GetCallerIdentity(context.Background(), nil)
	require.Error(t, err)
}

func TestNewSTSClient(t *testing.T) {
	client := NewSTSClient(aws.Config{Region: "eu-west-1"})
	assert.Equal(t, "eu-west-1", client.Options().Region)
}
