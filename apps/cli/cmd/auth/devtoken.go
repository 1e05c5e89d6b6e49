package auth

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/zenGate-Global/leadcapture/platform/go/auth/devtoken"
)

func devTokenCommand() *cobra.Command {
	var (
		params  devtoken.Params
		keyFile string
	)

	cmd := &cobra.Command{
		Use:   "devtoken",
		Short: "Generate a provider user token for local use",
		Long: "Generate a user token. Without --key-file the token is unsigned and only the dev auth provider accepts it; " +
			"with an EC private key it is ES256-signed for a verifier configured with the matching public key.",
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now().UTC()

			if keyFile == "" {
				token, err := devtoken.BuildUnsignedToken(params, now)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			}

			pemBytes, err := os.ReadFile(keyFile)
			if err != nil {
				return fmt.Errorf("read key file: %w", err)
			}
			key, err := jwt.ParseECPrivateKeyFromPEM(pemBytes)
			if err != nil {
				return fmt.Errorf("parse EC private key: %w", err)
			}

			token, err := devtoken.BuildSignedES256Token(params, key, now)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&params.UserID, "user-id", "", "sub claim")
	cmd.Flags().StringVar(&params.Email, "email", "", "email claim")
	cmd.Flags().StringVar(&params.Name, "name", "", "display name")
	cmd.Flags().StringVar(&params.Issuer, "issuer", "urn:whopcom:exp-proxy", "iss claim")
	cmd.Flags().StringVar(&params.Audience, "audience", "", "aud claim (the provider app id)")
	cmd.Flags().DurationVar(&params.ExpiresIn, "expires-in", time.Hour, "token lifetime (e.g. 30m, 2h)")
	cmd.Flags().StringVar(&keyFile, "key-file", "", "PEM encoded EC private key; signs the token with ES256")

	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("audience")

	return cmd
}
