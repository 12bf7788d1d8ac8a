package extract

const linuxPing = `PING 192.168.1.100 (192.168.1.100) 56(84) bytes of data.
64 bytes from 192.168.1.100: icmp_seq=1 ttl=64 time=1.00 ms
64 bytes from 192.168.1.100: icmp_seq=2 ttl=64 time=4.00 ms

--- 192.168.1.100 ping statistics ---
30 packets transmitted, 30 received, 0% packet loss, time 29041ms
rtt min/avg/max/mdev = 1.0/2.5/4.0/0.3 ms
`

const macPing = `PING 192.168.1.100 (192.168.1.100): 56 data bytes
64 bytes from 192.168.1.100: icmp_seq=0 ttl=64 time=1.000 ms

--- 192.168.1.100 ping statistics ---
30 packets transmitted, 30 packets received, 0.0% packet loss
round-trip min/avg/max/stddev = 1.0/2.5/4.0/0.3 ms
`

const udpUpload = `Connecting to host 192.168.1.100, port 5201
[  5] local 192.168.1.10 port 50000 connected to 192.168.1.100 port 5201
[ ID] Interval           Transfer     Bitrate         Total Datagrams
[  5]   0.00-1.00   sec   119 MBytes  1000 Mbits/sec  86207
- - - - - - - - - - - - - - - - - - - - - - - - -
[ ID] Interval           Transfer     Bitrate         Jitter    Lost/Total Datagrams
[  5]   0.00-60.00  sec  6.98 GBytes  1000 Mbits/sec  0.000 ms  0/5172414 (0%)  sender
[  5]   0.00-60.04  sec  5.93 GBytes   850 Mbits/sec  0.045 ms  5172/5172414 (0.1%)  receiver

iperf Done.
`

const udpDownload = `Connecting to host 192.168.1.100, port 5201
Reverse mode, remote host 192.168.1.100 is sending
[ ID] Interval           Transfer     Bitrate         Jitter    Lost/Total Datagrams
[  5]   0.00-60.04  sec  6.20 GBytes   887.5 Mbits/sec  0.000 ms  0/4600000 (0%)  sender
[  5]   0.00-60.00  sec  6.10 GBytes   873 Mbits/sec  0.210 ms  1200/4600000 (0.026%)  receiver

iperf Done.
`

const tcpTwoReceivers = `Connecting to host 192.168.1.100, port 5201
[ ID] Interval           Transfer     Bitrate         Retr
[  5]   0.00-60.00  sec  3.30 GBytes   472 Mbits/sec   12             sender
[  5]   0.00-60.04  sec  3.29 GBytes   471 Mbits/sec                  receiver
[  7]   0.00-60.00  sec  3.31 GBytes   474 Mbits/sec    3             sender
[  7]   0.00-60.04  sec  3.30 GBytes   472 Mbits/sec                  receiver
[SUM]   0.00-60.00  sec  6.61 GBytes   946 Mbits/sec   15             sender
[SUM]   0.00-60.04  sec  6.59 GBytes   943 Mbits/sec                  receiver

iperf Done.
`
