/*
 * Copyright (c) 2020 Miguel Ángel Ortuño.
 * See the LICENSE file for more information.
 */

package auth

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vireo-im/vireo/model"
	"github.com/vireo-im/vireo/storage/repository"
	"github.com/vireo-im/vireo/stream"
	"github.com/vireo-im/vireo/transport"
	"github.com/vireo-im/vireo/util"
	"github.com/vireo-im/vireo/xmpp"
)

type scramState int

const (
	startScramState scramState = iota
	challengedScramState
)

type scramParameter struct {
	key string
	val string
}

type scramParameters struct {
	gs2Header   string
	cbMechanism string
	authzID     string
	params      []scramParameter
}

func (s *scramParameters) getParameter(key string) string {
	for _, p := range s.params {
		if p.key == key {
			return p.val
		}
	}
	return ""
}

func (s *scramParameters) String() string {
	ret := ""
	for i, p := range s.params {
		if i != 0 {
			ret += ","
		}
		ret += fmt.Sprintf("%s=%s", p.key, p.val)
	}
	return ret
}

// Scram represents a SCRAM-SHA-1 authenticator. Verification runs
// against the stored key and server key, so the salted password never
// has to be recomputed on the server side.
type Scram struct {
	authenticated bool
	usesCb        bool
	stm           stream.C2S
	userRep       repository.User
	tr            transport.Transport
	state         scramState
	params        *scramParameters
	user          *model.User
	knownUser     int
	srvNonce      string
	firstMessage  string
}

// NewScram returns a new scram authenticator instance.
func NewScram(stm stream.C2S, tr transport.Transport, usesChannelBinding bool, userRep repository.User) *Scram {
	return &Scram{
		stm:     stm,
		userRep: userRep,
		tr:      tr,
		usesCb:  usesChannelBinding,
		state:   startScramState,
	}
}

// Mechanism returns authenticator mechanism name.
func (s *Scram) Mechanism() string {
	if s.usesCb {
		return "SCRAM-SHA-1-PLUS"
	}
	return "SCRAM-SHA-1"
}

// Username returns authenticated username in case
// authentication process has been completed.
func (s *Scram) Username() string {
	if s.authenticated {
		return s.user.Username
	}
	return ""
}

// Authenticated returns whether or not user has been authenticated.
func (s *Scram) Authenticated() bool {
	return s.authenticated
}

// UsesChannelBinding returns whether or not scram authenticator
// requires channel binding bytes.
func (s *Scram) UsesChannelBinding() bool {
	return s.usesCb
}

// ProcessElement process an incoming authenticator element.
func (s *Scram) ProcessElement(ctx context.Context, elem xmpp.XElement) error {
	if s.Authenticated() {
		return nil
	}
	switch elem.Name() {
	case "auth":
		if s.state == startScramState {
			return s.handleStart(ctx, elem)
		}
	case "response":
		if s.state == challengedScramState {
			return s.handleChallenged(ctx, elem)
		}
	}
	return ErrSASLNotAuthorized
}

// Reset resets scram internal state.
func (s *Scram) Reset() {
	s.authenticated = false

	s.state = startScramState
	s.params = nil
	s.user = nil
	s.knownUser = 0
	s.srvNonce = ""
	s.firstMessage = ""
}

func (s *Scram) handleStart(ctx context.Context, elem xmpp.XElement) error {
	p, err := s.getElementPayload(elem)
	if err != nil {
		return err
	}
	if err := s.parseParameters(p); err != nil {
		return err
	}
	username := s.params.getParameter("n")
	cNonce := s.params.getParameter("r")

	if len(username) == 0 || len(cNonce) == 0 {
		return ErrSASLMalformedRequest
	}
	usr, err := normalizeUsername(username)
	if err != nil {
		return ErrSASLMalformedRequest
	}
	s.user, err = s.userRep.FetchUser(ctx, usr)
	if err != nil {
		return err
	}
	s.knownUser = 1
	if s.user == nil {
		// challenge with dummy verifier material so that an unknown
		// username is indistinguishable from a wrong password
		s.user = dummyUser
		s.knownUser = 0
	}

	s.srvNonce = cNonce + "-" + uuid.New().String()
	sb64 := base64.StdEncoding.EncodeToString(s.user.Salt)
	s.firstMessage = fmt.Sprintf("r=%s,s=%s,i=%d", s.srvNonce, sb64, s.user.IterationCount)

	respElem := xmpp.NewElementNamespace("challenge", saslNamespace)
	respElem.SetText(base64.StdEncoding.EncodeToString([]byte(s.firstMessage)))
	s.stm.SendElement(ctx, respElem)

	s.state = challengedScramState
	return nil
}

func (s *Scram) handleChallenged(ctx context.Context, elem xmpp.XElement) error {
	p, err := s.getElementPayload(elem)
	if err != nil {
		return err
	}
	j := strings.LastIndex(p, ",p=")
	if j == -1 {
		return ErrSASLMalformedRequest
	}
	clientFinalMessageBare := p[:j]
	clientProof, err := base64.StdEncoding.DecodeString(p[j+len(",p="):])
	if err != nil {
		return ErrSASLIncorrectEncoding
	}
	expectedBare := fmt.Sprintf("c=%s,r=%s", s.getCBindInputString(), s.srvNonce)
	if subtle.ConstantTimeCompare([]byte(clientFinalMessageBare), []byte(expectedBare)) != 1 {
		return ErrSASLNotAuthorized
	}
	initialMessage := s.params.String()
	authMessage := initialMessage + "," + s.firstMessage + "," + clientFinalMessageBare

	clientSignature := s.hmac([]byte(authMessage), s.user.StoredKey)
	if len(clientProof) != len(clientSignature) {
		return ErrSASLNotAuthorized
	}
	clientKey := make([]byte, len(clientProof))
	for i := 0; i < len(clientProof); i++ {
		clientKey[i] = clientProof[i] ^ clientSignature[i]
	}
	match := subtle.ConstantTimeCompare(s.hash(clientKey), s.user.StoredKey)
	if s.knownUser&match != 1 {
		return ErrSASLNotAuthorized
	}
	serverSignature := s.hmac([]byte(authMessage), s.user.ServerKey)
	v := "v=" + base64.StdEncoding.EncodeToString(serverSignature)

	respElem := xmpp.NewElementNamespace("success", saslNamespace)
	respElem.SetText(base64.StdEncoding.EncodeToString([]byte(v)))
	s.stm.SendElement(ctx, respElem)

	s.authenticated = true
	return nil
}

func (s *Scram) getElementPayload(elem xmpp.XElement) (string, error) {
	if len(elem.Text()) == 0 {
		return "", ErrSASLIncorrectEncoding
	}
	b, err := base64.StdEncoding.DecodeString(elem.Text())
	if err != nil {
		return "", ErrSASLIncorrectEncoding
	}
	return string(b), nil
}

func (s *Scram) parseParameters(str string) error {
	p := &scramParameters{}

	sp := strings.Split(str, ",")
	if len(sp) < 2 {
		return ErrSASLIncorrectEncoding
	}
	gs2BindFlag := sp[0]

	// https://tools.ietf.org/html/rfc5801#section-5
	switch gs2BindFlag {
	case "p":
		// Channel binding is supported and required.
		if !s.usesCb {
			return ErrSASLNotAuthorized
		}
	case "n", "y":
		// Channel binding is not supported, or is supported but is not required.
		break
	default:
		if !strings.HasPrefix(gs2BindFlag, "p=") {
			return ErrSASLMalformedRequest
		}
		if !s.usesCb {
			return ErrSASLNotAuthorized
		}
		p.cbMechanism = gs2BindFlag[2:]
	}
	authzID := sp[1]
	p.gs2Header = gs2BindFlag + "," + authzID + ","

	if len(authzID) > 0 {
		key, val := util.SplitKeyAndValue(authzID, '=')
		if len(key) == 0 || key != "a" {
			return ErrSASLMalformedRequest
		}
		p.authzID = val
	}
	for i := 2; i < len(sp); i++ {
		key, val := util.SplitKeyAndValue(sp[i], '=')
		p.params = append(p.params, scramParameter{key, val})
	}
	s.params = p
	return nil
}

func (s *Scram) getCBindInputString() string {
	buf := new(bytes.Buffer)
	buf.Write([]byte(s.params.gs2Header))
	if s.usesCb {
		switch s.params.cbMechanism {
		case "tls-unique":
			buf.Write(s.tr.ChannelBindingBytes(transport.TLSUnique))
		}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func (s *Scram) hmac(b []byte, key []byte) []byte {
	m := hmac.New(sha1.New, key)
	m.Write(b)
	return m.Sum(nil)
}

func (s *Scram) hash(b []byte) []byte {
	h := sha1.New()
	h.Write(b)
	return h.Sum(nil)
}
