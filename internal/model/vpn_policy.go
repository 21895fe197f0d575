package model

import "time"

type IPSecPolicy struct {
	ID                      string    `json:"id" db:"id"`
	TenantID                string    `json:"tenant_id" db:"tenant_id"`
	Name                    string    `json:"name" db:"name"`
	Description             string    `json:"description" db:"description"`
	EncryptionAlgorithm     string    `json:"encryption_algorithm" db:"enc_alg"`
	AuthenticationAlgorithm string    `json:"authentication_algorithm" db:"auth_alg"`
	DHGroup                 string    `json:"dh_group" db:"dh_group"`
	LifeTime                int       `json:"life_time" db:"life_time"`
	Status                  string    `json:"status" db:"status"`
	StatusMessage           *string   `json:"status_message,omitempty" db:"status_message"`
	CreatedAt               time.Time `json:"created_at" db:"created_at"`
	UpdatedAt               time.Time `json:"updated_at" db:"updated_at"`
}

type IsakmpPolicy struct {
	ID                      string    `json:"id" db:"id"`
	TenantID                string    `json:"tenant_id" db:"tenant_id"`
	Name                    string    `json:"name" db:"name"`
	Description             string    `json:"description" db:"description"`
	AuthenticationMode      string    `json:"authentication_mode" db:"auth_mode"`
	EncryptionAlgorithm     string    `json:"encryption_algorithm" db:"enc_alg"`
	AuthenticationAlgorithm string    `json:"authentication_algorithm" db:"auth_alg"`
	EnablePFS               bool      `json:"enable_pfs" db:"enable_pfs"`
	DHGroup                 string    `json:"dh_group" db:"dh_group"`
	LifeTime                int       `json:"life_time" db:"life_time"`
	Status                  string    `json:"status" db:"status"`
	StatusMessage           *string   `json:"status_message,omitempty" db:"status_message"`
	CreatedAt               time.Time `json:"created_at" db:"created_at"`
	UpdatedAt               time.Time `json:"updated_at" db:"updated_at"`
}

type TrustProfile struct {
	ID                string    `json:"id" db:"id"`
	TenantID          string    `json:"tenant_id" db:"tenant_id"`
	Name              string    `json:"name" db:"name"`
	Description       string    `json:"description" db:"description"`
	TrustCA           string    `json:"trust_ca" db:"trust_ca"`
	CRL               string    `json:"crl" db:"crl"`
	ServerCertificate string    `json:"server_certificate" db:"server_cert"`
	Status            string    `json:"status" db:"status"`
	StatusMessage     *string   `json:"status_message,omitempty" db:"status_message"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// Policy defaults applied when a create request omits the field.
const (
	DefaultEncryptionAlgorithm     = "aes256"
	DefaultAuthenticationAlgorithm = "sha1"
	DefaultDHGroup                 = "2"
	DefaultIPSecLifeTime           = 3600
	DefaultIsakmpLifeTime          = 28800
	DefaultAuthenticationMode      = "psk"
	DefaultSiteMTU                 = 1500
)
