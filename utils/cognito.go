package utils

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"

	"github.com/inkwell-dev/inkwell/config"
)

var (
	cognitoClient *cognitoidentityprovider.Client
	cognitoOnce   sync.Once
	cognitoErr    error
)

// GetCognitoClient returns a singleton identity-provider client for the
// configured region.
func GetCognitoClient() (*cognitoidentityprovider.Client, error) {
	cognitoOnce.Do(func() {
		cfg := config.Get()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			cognitoErr = err
			return
		}
		cognitoClient = cognitoidentityprovider.NewFromConfig(awsCfg)
	})
	return cognitoClient, cognitoErr
}

// SecretHash computes the HMAC the provider expects when the app client has a
// secret: Base64(HMAC-SHA256(secret, username + clientID)).
func SecretHash(username, clientID, clientSecret string) string {
	mac := hmac.New(sha256.New, []byte(clientSecret))
	mac.Write([]byte(username + clientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
