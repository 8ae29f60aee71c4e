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
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vireo-im/vireo/util"
	"github.com/vireo-im/vireo/xmpp"
)

type scramAuthTestCase struct {
	id          int
	usesCb      bool
	cbBytes     []byte
	gs2BindFlag string
	authID      string
	n           string
	r           string
	password    string
	expectedErr error
}

type scramAuthResult struct {
	clientFinalMessage string
	v                  string
}

var tt = []scramAuthTestCase{

	// Success cases
	{
		// SCRAM-SHA-1
		id:          1,
		usesCb:      false,
		gs2BindFlag: "n",
		n:           "ortuman",
		r:           "bb769406-eaa4-4f38-a279-2b90e596f6dd",
		password:    "1234",
	},
	{
		// SCRAM-SHA-1-PLUS
		id:          2,
		usesCb:      true,
		cbBytes:     util.RandomBytes(23),
		gs2BindFlag: "p=tls-unique",
		authID:      "a=vireo.im",
		n:           "ortuman",
		r:           "7e51aff7-6875-4dce-820a-6d4970635006",
		password:    "1234",
	},
	{
		// client supports channel binding but server does not require it
		id:          3,
		usesCb:      false,
		gs2BindFlag: "y",
		n:           "ortuman",
		r:           "6d805d99-6dc3-4e5a-9a68-653856fc5129",
		password:    "1234",
	},

	// Fail cases
	{
		// invalid user
		id:          4,
		usesCb:      false,
		gs2BindFlag: "n",
		n:           "mariana",
		r:           "bb769406-eaa4-4f38-a279-2b90e596f6dd",
		password:    "1234",
		expectedErr: ErrSASLNotAuthorized,
	},
	{
		// invalid password
		id:          5,
		usesCb:      false,
		gs2BindFlag: "n",
		n:           "ortuman",
		r:           "bb769406-eaa4-4f38-a279-2b90e596f6dd",
		password:    "12345678",
		expectedErr: ErrSASLNotAuthorized,
	},
	{
		// invalid authID
		id:          6,
		usesCb:      false,
		gs2BindFlag: "n",
		authID:      "b=vireo.im",
		n:           "ortuman",
		r:           "bb769406-eaa4-4f38-a279-2b90e596f6dd",
		password:    "1234",
		expectedErr: ErrSASLMalformedRequest,
	},
	{
		// not matching gs2BindFlag
		id:          7,
		usesCb:      false,
		gs2BindFlag: "p=tls-unique",
		authID:      "a=vireo.im",
		n:           "ortuman",
		r:           "bb769406-eaa4-4f38-a279-2b90e596f6dd",
		password:    "1234",
		expectedErr: ErrSASLNotAuthorized,
	},
	{
		// malformed gs2BindFlag
		id:          8,
		usesCb:      false,
		gs2BindFlag: "q=tls-unique",
		authID:      "a=vireo.im",
		n:           "ortuman",
		r:           "bb769406-eaa4-4f38-a279-2b90e596f6dd",
		password:    "1234",
		expectedErr: ErrSASLMalformedRequest,
	},
	{
		// empty username
		id:          9,
		usesCb:      false,
		gs2BindFlag: "n",
		authID:      "a=vireo.im",
		n:           "",
		r:           "bb769406-eaa4-4f38-a279-2b90e596f6dd",
		password:    "1234",
		expectedErr: ErrSASLMalformedRequest,
	},
}

func TestScram_Mechanisms(t *testing.T) {
	testTr := &fakeTransport{}
	testStrm, userRep := authTestSetup(nil)

	authr := NewScram(testStrm, testTr, false, userRep)
	require.Equal(t, authr.Mechanism(), "SCRAM-SHA-1")
	require.False(t, authr.UsesChannelBinding())

	authr2 := NewScram(testStrm, testTr, true, userRep)
	require.Equal(t, authr2.Mechanism(), "SCRAM-SHA-1-PLUS")
	require.True(t, authr2.UsesChannelBinding())
}

func TestScram_BadPayload(t *testing.T) {
	testTr := &fakeTransport{}
	testStrm, userRep := authTestSetup(deriveUser("ortuman", "1234", util.RandomBytes(saltLength), defaultIterationCount))

	authr := NewScram(testStrm, testTr, false, userRep)

	auth := xmpp.NewElementNamespace("auth", saslNamespace)
	auth.SetAttribute("mechanism", authr.Mechanism())

	// empty auth payload
	require.Equal(t, ErrSASLIncorrectEncoding, authr.ProcessElement(context.Background(), auth))

	// incorrect auth payload encoding
	authr.Reset()
	auth.SetText(".")
	require.Equal(t, ErrSASLIncorrectEncoding, authr.ProcessElement(context.Background(), auth))
}

func TestScram_UnknownUserChallenged(t *testing.T) {
	tr := &fakeTransport{}
	testStrm, userRep := authTestSetup(nil)

	authr := NewScram(testStrm, tr, false, userRep)

	auth := xmpp.NewElementNamespace("auth", saslNamespace)
	auth.SetAttribute("mechanism", authr.Mechanism())

	clientInitialMessage := "n=mariana,r=bb769406-eaa4-4f38-a279-2b90e596f6dd"
	gs2Header := "n,,"
	auth.SetText(base64.StdEncoding.EncodeToString([]byte(gs2Header + clientInitialMessage)))

	// an unknown username is still challenged
	require.Nil(t, authr.ProcessElement(context.Background(), auth))

	challenge := testStrm.ReceiveElement()
	require.Equal(t, "challenge", challenge.Name())

	srvInitialMessage, err := base64.StdEncoding.DecodeString(challenge.Text())
	require.Nil(t, err)
	resp := parseScramResponse(string(srvInitialMessage))

	salt, err := base64.StdEncoding.DecodeString(resp["s"])
	require.Nil(t, err)
	iterations, _ := strconv.Atoi(resp["i"])

	cBytes := base64.StdEncoding.EncodeToString([]byte(gs2Header))

	// even a proof matching the served verifier material must be rejected
	res := computeScramAuthResult(clientInitialMessage, string(srvInitialMessage), resp["r"], cBytes, "", salt, iterations)

	response := xmpp.NewElementNamespace("response", saslNamespace)
	response.SetText(base64.StdEncoding.EncodeToString([]byte(res.clientFinalMessage)))

	require.Equal(t, ErrSASLNotAuthorized, authr.ProcessElement(context.Background(), response))
	require.False(t, authr.Authenticated())
}

func TestScram_TestCases(t *testing.T) {
	for _, tc := range tt {
		err := processScramTestCase(t, &tc)
		if err != nil {
			require.Equal(t, tc.expectedErr, err, fmt.Sprintf("TC identifier: %d", tc.id))
			continue
		}
	}
}

func processScramTestCase(t *testing.T, tc *scramAuthTestCase) error {
	tr := &fakeTransport{}
	if tc.usesCb {
		tr.cbBytes = tc.cbBytes
	}
	testStrm, userRep := authTestSetup(deriveUser("ortuman", "1234", util.RandomBytes(saltLength), defaultIterationCount))

	authr := NewScram(testStrm, tr, tc.usesCb, userRep)

	auth := xmpp.NewElementNamespace("auth", saslNamespace)
	auth.SetAttribute("mechanism", authr.Mechanism())

	clientInitialMessage := fmt.Sprintf(`n=%s,r=%s`, tc.n, tc.r)
	gs2Header := fmt.Sprintf(`%s,%s,`, tc.gs2BindFlag, tc.authID)
	authPayload := gs2Header + clientInitialMessage
	auth.SetText(base64.StdEncoding.EncodeToString([]byte(authPayload)))

	err := authr.ProcessElement(context.Background(), auth)
	if err != nil {
		return err
	}
	challenge := testStrm.ReceiveElement()
	require.NotNil(t, challenge)
	require.Equal(t, "challenge", challenge.Name())

	srvInitialMessage, err := base64.StdEncoding.DecodeString(challenge.Text())
	require.Nil(t, err)
	resp := parseScramResponse(string(srvInitialMessage))

	srvNonce := resp["r"]
	salt, err := base64.StdEncoding.DecodeString(resp["s"])
	require.Nil(t, err)

	iterations, _ := strconv.Atoi(resp["i"])

	buf := new(bytes.Buffer)
	buf.Write([]byte(gs2Header))
	if tc.usesCb {
		buf.Write(tc.cbBytes)
	}
	cBytes := base64.StdEncoding.EncodeToString(buf.Bytes())

	res := computeScramAuthResult(clientInitialMessage, string(srvInitialMessage), srvNonce, cBytes, tc.password, salt, iterations)

	response := xmpp.NewElementNamespace("response", saslNamespace)
	response.SetText(base64.StdEncoding.EncodeToString([]byte(res.clientFinalMessage)))

	err = authr.ProcessElement(context.Background(), response)
	if err != nil {
		return err
	}

	success := testStrm.ReceiveElement()
	require.Equal(t, "success", success.Name())

	vb64, err := base64.StdEncoding.DecodeString(success.Text())
	require.Nil(t, err)
	require.Equal(t, res.v, string(vb64))

	require.True(t, authr.Authenticated())
	require.Equal(t, tc.n, authr.Username())

	require.Nil(t, authr.ProcessElement(context.Background(), auth)) // test already authenticated...
	return nil
}

func computeScramAuthResult(clientInitialMessage, serverInitialMessage, srvNonce, cBytes, password string, salt []byte, iterations int) *scramAuthResult {
	clientFinalMessageBare := fmt.Sprintf("c=%s,r=%s", cBytes, srvNonce)

	saltedPassword := SaltedPassword([]byte(password), salt, iterations, sha1.New)
	clientKey := testScramAuthHmac([]byte("Client Key"), saltedPassword)
	storedKey := testScramAuthHash(clientKey)
	authMessage := clientInitialMessage + "," + serverInitialMessage + "," + clientFinalMessageBare
	clientSignature := testScramAuthHmac([]byte(authMessage), storedKey)

	clientProof := make([]byte, len(clientKey))
	for i := 0; i < len(clientKey); i++ {
		clientProof[i] = clientKey[i] ^ clientSignature[i]
	}
	serverKey := testScramAuthHmac([]byte("Server Key"), saltedPassword)
	serverSignature := testScramAuthHmac([]byte(authMessage), serverKey)

	res := &scramAuthResult{}
	res.clientFinalMessage = fmt.Sprintf("%s,p=%s", clientFinalMessageBare, base64.StdEncoding.EncodeToString(clientProof))
	res.v = "v=" + base64.StdEncoding.EncodeToString(serverSignature)
	return res
}

func parseScramResponse(str string) map[string]string {
	ret := map[string]string{}
	s1 := strings.Split(str, ",")
	for _, s := range s1 {
		key, val := util.SplitKeyAndValue(s, '=')
		ret[key] = val
	}
	return ret
}

func testScramAuthHmac(b []byte, key []byte) []byte {
	m := hmac.New(sha1.New, key)
	m.Write(b)
	return m.Sum(nil)
}

func testScramAuthHash(b []byte) []byte {
	h := sha1.New()
	h.Write(b)
	return h.Sum(nil)
}
