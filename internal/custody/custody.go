package custody

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/blues/ess/internal/config"
	"github.com/blues/ess/internal/errs"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

// 派生方案为系统常量：secp256k1 over keccak256(seed||path)，地址为EIP-55编码。
// 路径固定两类：平台手续费账户与按项目隔离的托管账户。
const (
	PlatformFeePath  = "//platform-fee"
	escrowPathPrefix = "//escrow//"
)

const encryptionKeyLen = 32

// Custody 托管密钥模块。持有种子加密密钥与加密后的主种子，
// 明文种子只在派生/签名期间短暂存在于内存。
type Custody struct {
	encKey        []byte
	seedEncrypted string
}

// New 创建托管模块，密钥不足32字节时按原有约定补'0'
func New(cfg config.EscrowConfig) (*Custody, error) {
	if cfg.EncryptionKey == "" {
		return nil, errs.Validation("escrow encryption key is not configured")
	}
	key := cfg.EncryptionKey
	if len(key) < encryptionKeyLen {
		key = key + strings.Repeat("0", encryptionKeyLen-len(key))
	}
	return &Custody{
		encKey:        []byte(key[:encryptionKeyLen]),
		seedEncrypted: cfg.MasterSeedEncrypted,
	}, nil
}

// NewProjectPath 为新项目生成唯一的托管派生路径
func NewProjectPath() string {
	return escrowPathPrefix + uuid.NewString()
}

// Encrypt 加密种子，输出 nonceHex:cipherHex
func (c *Custody) Encrypt(plain []byte) (string, error) {
	aead, err := c.aead()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := aead.Seal(nil, nonce, plain, nil)
	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(sealed), nil
}

// Decrypt 解密种子。格式不合法返回format错误，密钥错误或密文被篡改返回decryption错误。
func (c *Custody) Decrypt(ciphertext string) ([]byte, error) {
	parts := strings.Split(ciphertext, ":")
	if len(parts) != 2 {
		return nil, errs.Format("invalid encrypted seed format")
	}
	nonce, err := hex.DecodeString(parts[0])
	if err != nil {
		return nil, errs.Format("invalid nonce encoding")
	}
	sealed, err := hex.DecodeString(parts[1])
	if err != nil {
		return nil, errs.Format("invalid ciphertext encoding")
	}
	aead, err := c.aead()
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, errs.Format("invalid nonce length")
	}
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, errs.Decryption("failed to decrypt seed")
	}
	return plain, nil
}

// MasterSeed 解密配置中的主种子，调用方用完必须WipeBytes
func (c *Custody) MasterSeed() ([]byte, error) {
	if c.seedEncrypted == "" {
		return nil, errs.Validation("master seed is not configured")
	}
	return c.Decrypt(c.seedEncrypted)
}

// DeriveKey 从主种子和路径确定性派生secp256k1私钥
func (c *Custody) DeriveKey(seed []byte, path string) (*ecdsa.PrivateKey, error) {
	if len(seed) == 0 {
		return nil, errs.Validation("seed must not be empty")
	}
	if path == "" {
		return nil, errs.Validation("derivation path must not be empty")
	}
	digest := crypto.Keccak256(seed, []byte(path))
	key, err := crypto.ToECDSA(digest)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key for path %s: %w", path, err)
	}
	return key, nil
}

// DeriveAddress 派生路径对应的托管地址
func (c *Custody) DeriveAddress(seed []byte, path string) (string, error) {
	key, err := c.DeriveKey(seed, path)
	if err != nil {
		return "", err
	}
	addr := crypto.PubkeyToAddress(key.PublicKey).Hex()
	Wipe(key)
	return addr, nil
}

// Wipe 清零私钥标量，签名完成后必须调用
func Wipe(key *ecdsa.PrivateKey) {
	if key == nil || key.D == nil {
		return
	}
	bits := key.D.Bits()
	for i := range bits {
		bits[i] = 0
	}
	key.D.SetInt64(0)
}

// WipeBytes 清零敏感字节
func WipeBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func (c *Custody) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.encKey)
	if err != nil {
		return nil, fmt.Errorf("failed to init cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
