package testutil

import "testing"

// EnvFakeVersion changes the release string and export list reported by the
// fake toolchain installed with FakePlatformTools.
const EnvFakeVersion = "XCOFF_FAKE_VERSION"

const fakeWhat = `for f in "$@"; do
  echo "$f:"
  echo "	@(#) libfoo ${XCOFF_FAKE_VERSION:-1.0}"
done
`

const fakeDump = `mode=
for arg in "$@"; do
  case "$arg" in
    -h) mode=h ;;
    -T|-Tv) mode=T ;;
  esac
done
if [ "$mode" = h ]; then
  cat <<'XCOFF_EOF'
Sections:
Idx Name          Size      VMA       LMA       File off  Algn
  0 .text         00000128  00000000  00000000  000000b4  2**5
  1 .data         00000040  00000128  00000128  000001dc  2**3
XCOFF_EOF
  exit 0
fi
if [ "$mode" = T ]; then
  cat <<'XCOFF_EOF'
                        ***Loader Symbol Table Information***
[Index]      Value      Scn     IMEX Sclass   Type           IMPid Name
[0]     0x00000000    undef      IMP     DS EXTref   libc.a(shr.o) malloc
[1]     0x20000a10    .data      EXP     DS SECdef        [noIMid] foo_init
XCOFF_EOF
  if [ -n "$XCOFF_FAKE_VERSION" ]; then
    echo "[2]     0x20000a1c    .data      EXP     DS SECdef        [noIMid] foo_$XCOFF_FAKE_VERSION"
  fi
  exit 0
fi
echo "dump: unsupported flags $*" >&2
exit 2
`

// FakePlatformTools puts fake what and dump commands on PATH. Their output
// is stable until EnvFakeVersion is set.
func FakePlatformTools(t *testing.T) {
	t.Helper()
	FakeTool(t, "what", fakeWhat)
	FakeTool(t, "dump", fakeDump)
}
