package kafka

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"github.com/IBM/sarama"
	"github.com/xdg-go/scram"
)

// SASL mechanisms accepted in SASLConfig.Mechanism
const (
	MechanismPlain       = "PLAIN"
	MechanismSCRAMSHA256 = "SCRAM-SHA-256"
	MechanismSCRAMSHA512 = "SCRAM-SHA-512"
)

var (
	sha256Generator scram.HashGeneratorFcn = func() hash.Hash { return sha256.New() }
	sha512Generator scram.HashGeneratorFcn = func() hash.Hash { return sha512.New() }
)

// scramClient adapts an xdg-go/scram conversation to sarama.SCRAMClient
type scramClient struct {
	hashGen      scram.HashGeneratorFcn
	conversation *scram.ClientConversation
}

var _ sarama.SCRAMClient = (*scramClient)(nil)

// Begin 用账号密码创建一次新的认证会话
func (c *scramClient) Begin(userName, password, authzID string) error {
	client, err := c.hashGen.NewClient(userName, password, authzID)
	if err != nil {
		return err
	}
	c.conversation = client.NewConversation()
	return nil
}

func (c *scramClient) Step(challenge string) (string, error) {
	return c.conversation.Step(challenge)
}

func (c *scramClient) Done() bool {
	return c.conversation.Done()
}

// applySASL fills sarama's SASL settings; an empty mechanism means PLAIN
func applySASL(sc *sarama.Config, cfg *SASLConfig) {
	sc.Net.SASL.Enable = true
	sc.Net.SASL.User = cfg.Username
	sc.Net.SASL.Password = cfg.Password

	switch cfg.Mechanism {
	case MechanismSCRAMSHA256:
		sc.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
		sc.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
			return &scramClient{hashGen: sha256Generator}
		}
	case MechanismSCRAMSHA512:
		sc.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA512
		sc.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
			return &scramClient{hashGen: sha512Generator}
		}
	default:
		sc.Net.SASL.Mechanism = sarama.SASLTypePlaintext
	}
}
