package pipeline

import (
	"fmt"

	"github.com/kb9ops/gopacketmodem/internal/bits"
	"github.com/kb9ops/gopacketmodem/internal/block"
	"github.com/kb9ops/gopacketmodem/internal/blocks"
	"github.com/kb9ops/gopacketmodem/internal/config"
	"github.com/kb9ops/gopacketmodem/internal/crc"
	"github.com/kb9ops/gopacketmodem/internal/dsp"
	"github.com/kb9ops/gopacketmodem/internal/framing"
	"github.com/kb9ops/gopacketmodem/internal/message"
	"github.com/kb9ops/gopacketmodem/internal/scheduler"
	"github.com/kb9ops/gopacketmodem/internal/stream"
	"github.com/kb9ops/gopacketmodem/internal/sync"
	"github.com/kb9ops/gopacketmodem/internal/tag"
)

// receive-chain constants the wire format fixes independently of
// configuration (spec.md §4.5, §6).
const (
	fftSize          = 2048
	syncTimeThresh   = 2
	coarseFreqDelay  = 8
	symbolFilterArms = 32
	headerQPSKSyms   = framing.HeaderCodewordLen * 8 / 2 // 256 coded bits / 2 bits-per-QPSK-symbol
	llrNoiseSigma    = 1.0
)

// Receive is the baseband-samples-to-packet-bytes chain spec.md §4.4
// and §4.5 describe: syncword detection and frequency search, coarse
// and fine (Costas) carrier recovery, matched-filter timing recovery,
// LLR demodulation, descrambling, and the header/payload split that
// feeds the header FEC decoder and the payload CRC check.
type Receive struct {
	In       stream.Port[complex64]
	Out      stream.Port[byte]
	Graph    *scheduler.Graph
	Metadata *message.Bus
}

// NewReceive wires a complete receive chain for cfg.
func NewReceive(cfg config.Pipeline) (*Receive, error) {
	sps := cfg.SamplesPerSymbol

	metadata := message.NewBus(64)
	crcEngine, err := crc.New(crc.CRC32MPEG2)
	if err != nil {
		return nil, fmt.Errorf("pipeline: receive: %w", err)
	}

	ntaps := rrcTapsPerSps * sps
	taps := dsp.RootRaisedCosine(1.0, float64(sps), 1.0, rolloff, ntaps)

	detector := sync.NewSyncwordDetector(fftSize, cfg.SyncFreqBins, syncTimeThresh, cfg.SyncThreshold, sps, taps)

	coarse := sync.NewCoarseFrequencyCorrection(coarseFreqDelay)
	coarse.In = detector.Out

	symFilter := sync.NewSymbolFilter(sps, symbolFilterArms, ntaps/2/symbolFilterArms, taps)
	symFilter.In = coarse.Out

	wipeoff := sync.NewSyncwordWipeoff()
	wipeoff.In = symFilter.Out

	metaInsert := sync.NewPayloadMetadataInsert(metadata, sync.SyncwordBits, headerQPSKSyms)
	metaInsert.In = wipeoff.Out

	costas := sync.NewCostasLoop(0.01)
	costas.In = metaInsert.Out

	swRemove := sync.NewSyncwordRemove(sync.SyncwordBits)
	swRemove.In = costas.Out

	llrDecoder := sync.NewConstellationLLRDecoder(llrNoiseSigma)
	llrDecoder.In = swRemove.Out

	descrambler := bits.NewSoftDescramblerBlock(bits.CCSDS131(), tag.KeyHeaderStart)
	descrambler.In = llrDecoder.Out

	split := sync.NewHeaderPayloadSplit[float32](framing.HeaderLLRLen, 1)
	split.In = descrambler.Out

	headerDecoder := framing.NewHeaderFecDecoder()
	headerDecoder.In = split.Header

	headerParser := framing.NewHeaderParser(metadata)
	headerParser.In = headerDecoder.Out

	slicer := sync.NewBinarySlicer(true)
	slicer.In = split.Payload

	pack, err := blocks.NewPackBits[byte, byte](8, 1, blocks.MSB, tag.KeyPayloadBits)
	if err != nil {
		return nil, fmt.Errorf("pipeline: receive: %w", err)
	}
	pack.In = slicer.Out

	crcCheck := framing.NewCrcCheck(crcEngine)
	crcCheck.PacketLenKey = tag.KeyPayloadBits
	crcCheck.DiscardCRC = true
	crcCheck.In = pack.Out

	nodes := []block.Block{
		detector, coarse, symFilter, wipeoff, metaInsert, costas,
		swRemove, llrDecoder, descrambler, split,
		headerDecoder, headerParser,
		slicer, pack, crcCheck,
	}

	return &Receive{
		In:       detector.In,
		Out:      crcCheck.Out,
		Graph:    scheduler.NewGraph(nodes...),
		Metadata: metadata,
	}, nil
}
