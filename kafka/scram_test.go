package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xdg-go/scram"
)

// 与 xdg-go/scram 服务端走完整的 SCRAM 握手
func TestSCRAMClient_Handshake(t *testing.T) {
	for name, gen := range map[string]scram.HashGeneratorFcn{
		MechanismSCRAMSHA256: sha256Generator,
		MechanismSCRAMSHA512: sha512Generator,
	} {
		t.Run(name, func(t *testing.T) {
			reference, err := gen.NewClient("ingest", "secret", "")
			require.NoError(t, err)
			creds := reference.GetStoredCredentials(scram.KeyFactors{Salt: "pepper", Iters: 4096})

			server, err := gen.NewServer(func(user string) (scram.StoredCredentials, error) {
				assert.Equal(t, "ingest", user)
				return creds, nil
			})
			require.NoError(t, err)
			serverConv := server.NewConversation()

			client := &scramClient{hashGen: gen}
			require.NoError(t, client.Begin("ingest", "secret", ""))

			msg, err := client.Step("")
			require.NoError(t, err)
			for !client.Done() {
				reply, err := serverConv.Step(msg)
				require.NoError(t, err)
				msg, err = client.Step(reply)
				require.NoError(t, err)
			}
			assert.True(t, serverConv.Valid())
		})
	}
}

func TestSCRAMClient_WrongPassword(t *testing.T) {
	reference, err := sha256Generator.NewClient("ingest", "secret", "")
	require.NoError(t, err)
	creds := reference.GetStoredCredentials(scram.KeyFactors{Salt: "pepper", Iters: 4096})

	server, err := sha256Generator.NewServer(func(string) (scram.StoredCredentials, error) { return creds, nil })
	require.NoError(t, err)
	serverConv := server.NewConversation()

	client := &scramClient{hashGen: sha256Generator}
	require.NoError(t, client.Begin("ingest", "wrong", ""))

	first, err := client.Step("")
	require.NoError(t, err)
	challenge, err := serverConv.Step(first)
	require.NoError(t, err)
	final, err := client.Step(challenge)
	require.NoError(t, err)

	_, err = serverConv.Step(final)
	assert.Error(t, err)
	assert.False(t, serverConv.Valid())
}
